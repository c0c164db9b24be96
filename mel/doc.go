// Package mel provides mel-frequency spectrogram generation.
//
// The defaults follow the conventions most audio classifiers are trained
// with:
//   - 2048-point FFT, 512-sample hop, periodic Hann window
//   - frames centered on the hop grid by zero padding half a window
//   - 128 mel bands on the Slaney scale, area normalized
//   - power spectrogram (|X|^2) converted to decibels relative to the peak
//
// The resulting Spectrogram can be rendered by package plot or exported as a
// raw half-precision buffer.
package mel
