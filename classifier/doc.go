// Package classifier labels spectrogram images with a pretrained image
// classification model.
//
// Images are forced to RGB, resized to a square raster (256x256 by default),
// scaled to [0, 1] and given a leading batch dimension before a single
// forward pass. The highest scoring class index is mapped through a
// configured label table, which is checked against the model's output width
// and, when the model declares one, its own label order.
//
// A Model is loaded once per process and shared read-only between requests.
// LoadONNX provides an ONNX Runtime backed Model.
package classifier
