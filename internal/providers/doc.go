// Package providers defines the collaborator contracts the render workflow
// depends on: speech synthesis, audio normalisation, transcription, footage
// lookup, duration probing and rendering.
//
// Concrete backends live in subpackages (edgetts, openai, whispercli,
// pexels, pollinations, ffmpeg, command) and are selected by configuration
// through factory.Build. Command-line backends share the Executor defined
// here so tests can substitute a fake; HTTP backends share RetryingClient.
package providers
