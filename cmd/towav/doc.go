// Command towav converts audio files (WAV/MP3/FLAC) to mono PCM WAV.
//
// The output is what melvoice analyzes: channels averaged to mono at the
// native sample rate. Useful for inspecting an upload or building fixtures.
//
// Usage:
//
//	towav [--bits 16|24|32] <audio_file>...
//
// The output WAV file will be named <audio_file>.wav
package main
