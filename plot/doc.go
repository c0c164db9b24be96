// Package plot renders waveform and mel-spectrogram figures.
//
// Figures are drawn with gonum/plot onto an in-memory raster so they can be
// served as PNG or handed straight to an image classifier without touching
// the disk.
package plot
