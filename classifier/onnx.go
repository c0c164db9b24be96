package classifier

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXConfig locates an ONNX model and the ONNX Runtime shared library.
type ONNXConfig struct {
	Path string
	// LibraryPath is the onnxruntime shared library. Empty uses the
	// platform default search path.
	LibraryPath string
	// InputName and OutputName default to the model's first input and
	// output.
	InputName  string
	OutputName string
	// LabelsKey names the custom metadata entry holding the class order.
	LabelsKey string
	// Classes is used when the model's output width is dynamic.
	Classes int
	Threads int
}

var (
	ortOnce sync.Once
	ortErr  error
)

func initRuntime(lib string) error {
	ortOnce.Do(func() {
		if lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		if !ort.IsInitialized() {
			ortErr = ort.InitializeEnvironment()
		}
	})
	return ortErr
}

// ONNXModel is a Model backed by an ONNX Runtime session.
type ONNXModel struct {
	session *ort.DynamicAdvancedSession
	classes int
	labels  Labels
	layout  Layout
}

// LoadONNX opens the model at cfg.Path. Every failure wraps ErrModelLoad.
func LoadONNX(cfg ONNXConfig) (*ONNXModel, error) {
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}
	if err := initRuntime(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("%w: onnxruntime: %w", ErrModelLoad, err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: inspect %s: %w", ErrModelLoad, cfg.Path, err)
	}
	in, err := pickIO(inputs, cfg.InputName, "input")
	if err != nil {
		return nil, err
	}
	out, err := pickIO(outputs, cfg.OutputName, "output")
	if err != nil {
		return nil, err
	}

	m := &ONNXModel{classes: cfg.Classes, layout: inputLayout(in.Dimensions)}
	if dims := out.Dimensions; len(dims) > 0 && dims[len(dims)-1] > 0 {
		m.classes = int(dims[len(dims)-1])
	}
	if m.classes <= 0 {
		return nil, fmt.Errorf("%w: output %q has a dynamic class dimension and no class count is configured", ErrModelLoad, out.Name)
	}

	if cfg.LabelsKey != "" {
		m.labels, err = declaredLabels(cfg.Path, cfg.LabelsKey)
		if err != nil {
			return nil, err
		}
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("%w: session options: %w", ErrModelLoad, err)
	}
	defer opts.Destroy()
	if cfg.Threads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.Threads); err != nil {
			return nil, fmt.Errorf("%w: threads: %w", ErrModelLoad, err)
		}
	}

	m.session, err = ort.NewDynamicAdvancedSession(cfg.Path, []string{in.Name}, []string{out.Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: create session: %w", ErrModelLoad, err)
	}
	return m, nil
}

func pickIO(infos []ort.InputOutputInfo, name, kind string) (ort.InputOutputInfo, error) {
	if len(infos) == 0 {
		return ort.InputOutputInfo{}, fmt.Errorf("%w: model has no %s", ErrModelLoad, kind)
	}
	if name == "" {
		return infos[0], nil
	}
	for _, info := range infos {
		if info.Name == name {
			return info, nil
		}
	}
	return ort.InputOutputInfo{}, fmt.Errorf("%w: model has no %s named %q", ErrModelLoad, kind, name)
}

// inputLayout guesses the layout of a 4-d image input from where the
// 3-channel axis sits.
func inputLayout(dims ort.Shape) Layout {
	if len(dims) != 4 {
		return LayoutAuto
	}
	switch {
	case dims[3] == 3:
		return LayoutNHWC
	case dims[1] == 3:
		return LayoutNCHW
	}
	return LayoutAuto
}

func declaredLabels(path, key string) (Labels, error) {
	md, err := ort.GetModelMetadata(path)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata: %w", ErrModelLoad, err)
	}
	defer md.Destroy()

	v, ok, err := md.LookupCustomMetadataMap(key)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata %q: %w", ErrModelLoad, key, err)
	}
	if !ok {
		return nil, nil
	}
	l, err := ParseLabels(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}
	return l, nil
}

// Layout returns the input layout implied by the model's input shape.
func (m *ONNXModel) Layout() Layout { return m.layout }

// Classes returns the output width.
func (m *ONNXModel) Classes() int { return m.classes }

// DeclaredLabels returns the label order stored in the model metadata.
func (m *ONNXModel) DeclaredLabels() Labels { return m.labels }

// Predict runs one forward pass.
func (m *ONNXModel) Predict(ctx context.Context, in *Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	input, err := ort.NewTensor(ort.NewShape(in.Shape...), in.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: input tensor: %w", ErrInference, err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(in.Shape[0], int64(m.classes)))
	if err != nil {
		return nil, fmt.Errorf("%w: output tensor: %w", ErrInference, err)
	}
	defer output.Destroy()

	if err := m.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("%w: run: %w", ErrInference, err)
	}
	return append([]float32(nil), output.GetData()...), nil
}

// Close destroys the session.
func (m *ONNXModel) Close() error {
	if m.session == nil {
		return nil
	}
	return m.session.Destroy()
}
