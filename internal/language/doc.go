// Package language normalizes spoken-language identifiers for the
// transcription backends, which expect ISO 639-1 codes or "auto".
package language
