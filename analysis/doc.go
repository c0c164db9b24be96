// Package analysis runs the upload to label pipeline: decode the clip, plot
// the waveform, compute and plot the mel spectrogram, and classify the
// spectrogram raster.
//
// Every failure is reported as an *Error whose Kind selects the message the
// user sees. Plots produced before a classification failure are kept in the
// Report so they can still be shown.
package analysis
