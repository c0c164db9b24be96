// Package audio decodes uploaded audio clips into mono sample vectors.
//
// Supported containers:
//   - WAV (PCM), decoded with beep
//   - MP3, decoded with beep (go-mp3)
//   - FLAC, decoded with mewkiz/flac
//
// The native sample rate of the source is preserved. Multi-channel sources
// are downmixed to mono by averaging the channels. Every decoding failure
// wraps ErrDecode so callers can tell a bad upload from an internal fault.
package audio
