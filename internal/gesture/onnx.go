package gesture

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/ayusman/signbridge/internal/detector"
)

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// ONNXClassifier runs an exported letter model. The model takes a [1,63]
// float32 tensor and produces one probability per letter in Labels order.
type ONNXClassifier struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
}

// NewONNXClassifier loads the model at modelPath. libPath points at the
// onnxruntime shared library; empty uses the runtime's default lookup.
func NewONNXClassifier(modelPath, libPath string) (*ONNXClassifier, error) {
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("onnx: expected 1 input, got %d", len(inputs))
	}
	if dims := inputs[0].Dimensions; len(dims) != 2 || dims[1] != detector.NumFeatures {
		return nil, fmt.Errorf("onnx: expected input shape [N,%d], got %v", detector.NumFeatures, dims)
	}

	outputName := ""
	for _, out := range outputs {
		dims := out.Dimensions
		if out.DataType == ort.TensorElementDataTypeFloat && len(dims) == 2 && dims[1] == int64(len(Labels)) {
			outputName = out.Name
			break
		}
	}
	if outputName == "" {
		return nil, fmt.Errorf("onnx: no float output with %d classes", len(Labels))
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(2)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputName},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	return &ONNXClassifier{
		session:    session,
		inputName:  inputs[0].Name,
		outputName: outputName,
	}, nil
}

// Classify runs the model on one feature vector.
func (c *ONNXClassifier) Classify(features detector.FeatureVector) (Prediction, error) {
	data := make([]float32, detector.NumFeatures)
	for i, f := range features {
		data[i] = float32(f)
	}

	in, err := ort.NewTensor(ort.NewShape(1, detector.NumFeatures), data)
	if err != nil {
		return Prediction{}, fmt.Errorf("onnx: failed to create input tensor: %w", err)
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(Labels))))
	if err != nil {
		return Prediction{}, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer out.Destroy()

	if err := c.session.Run([]ort.Value{in}, []ort.Value{out}); err != nil {
		return Prediction{}, fmt.Errorf("onnx: inference failed: %w", err)
	}

	return argmax(out.GetData()), nil
}

// Close releases the inference session.
func (c *ONNXClassifier) Close() error {
	return c.session.Destroy()
}

func argmax(probs []float32) Prediction {
	best := 0
	for i := 1; i < len(probs) && i < len(Labels); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	if len(probs) == 0 {
		return Prediction{}
	}
	return Prediction{Label: Labels[best], Confidence: float64(probs[best])}
}
