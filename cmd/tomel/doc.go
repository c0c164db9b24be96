// Command tomel converts audio files (WAV/MP3/FLAC) to mel spectrogram images (PNG).
//
// This tool renders the same dB-scaled mel spectrogram figure the melvoice
// classifier sees and saves it next to the input.
//
// Usage:
//
//	tomel [--mels N] [--fmax HZ] [--f16] <audio_file>...
//
// The output PNG file will be named <audio_file>.png. With --f16 the dB
// values are also written as raw little-endian float16, mel band major, to
// <audio_file>.f16.
package main
