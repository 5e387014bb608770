// Package captions groups word-level transcription tokens into renderable
// caption pages.
//
// Paginate walks the token stream once, filling lines greedily by character
// length and opening a new page when the line budget runs out or a long
// silence separates two words. Tokens are never split, dropped or reordered,
// so concatenating every page reproduces the input stream exactly.
//
// Everything here is pure: the same tokens and options always produce the same
// pages, which keeps re-renders deterministic.
package captions
