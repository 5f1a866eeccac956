package rembg

import (
	"context"
	"image"
	"log/slog"
	"os"
	"sync"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/image/draw"

	"github.com/chaos-io/crowd2png/util"
)

const (
	U2NetModel = "u2net"

	defaultU2NetSize = 320
)

// ImageNet 均值 / 方差，与 U²-Net 训练时一致
var (
	u2netMean = [3]float32{0.485, 0.456, 0.406}
	u2netStd  = [3]float32{0.229, 0.224, 0.225}
)

// U2NetConfig 本地 ONNX 模型配置
type U2NetConfig struct {
	ModelPath string `yaml:"model_path" validate:"required"`
	// LibraryPath onnxruntime 动态库路径，为空时使用默认搜索路径
	LibraryPath string `yaml:"library_path"`
	// InputName / OutputName 为空时从模型读取第一个输入、输出
	InputName  string `yaml:"input_name"`
	OutputName string `yaml:"output_name"`
	Size       int    `yaml:"size" validate:"omitempty,gt=0"`
}

// U2NetRemBG 使用 U²-Net 显著性模型在本地推理 alpha 蒙版
//
// session 绑定了固定的输入输出 tensor，Run 不能并发，用 mu 串行化
type U2NetRemBG struct {
	mu      sync.Mutex
	size    int
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func NewU2NetRemBG(cfg U2NetConfig) (*U2NetRemBG, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(err, "model file %s", cfg.ModelPath)
	}

	if !ort.IsInitialized() {
		if cfg.LibraryPath != "" {
			ort.SetSharedLibraryPath(cfg.LibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, errors.Wrap(err, "initialize onnxruntime environment")
		}
	}

	inputName, outputName := cfg.InputName, cfg.OutputName
	if inputName == "" || outputName == "" {
		inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
		if err != nil {
			return nil, errors.Wrap(err, "read model input/output info")
		}
		if len(inputs) == 0 || len(outputs) == 0 {
			return nil, errors.New("model has no inputs or outputs")
		}
		if inputName == "" {
			inputName = inputs[0].Name
		}
		if outputName == "" {
			outputName = outputs[0].Name
		}
	}

	size := cfg.Size
	if size <= 0 {
		size = defaultU2NetSize
	}
	s := int64(size)

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, s, s))
	if err != nil {
		return nil, errors.Wrap(err, "create input tensor")
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1, s, s))
	if err != nil {
		_ = input.Destroy()
		return nil, errors.Wrap(err, "create output tensor")
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{inputName}, []string{outputName},
		[]ort.Value{input}, []ort.Value{output}, nil)
	if err != nil {
		_ = input.Destroy()
		_ = output.Destroy()
		return nil, errors.Wrap(err, "create onnxruntime session")
	}

	slog.Info("u2net session ready", "model", cfg.ModelPath, "input", inputName, "output", outputName, "size", size)

	return &U2NetRemBG{
		size:    size,
		session: session,
		input:   input,
		output:  output,
	}, nil
}

func (u *U2NetRemBG) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := util.ToNRGBA(img)

	u.mu.Lock()
	fillU2NetInput(u.input.GetData(), src, u.size)
	err := u.session.Run()
	var mask *image.Gray
	if err == nil {
		mask = u2netMask(u.output.GetData(), u.size)
	}
	u.mu.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "run u2net")
	}

	return applyMask(src, mask), nil
}

func (u *U2NetRemBG) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	var errs []error
	if u.session != nil {
		errs = append(errs, u.session.Destroy())
		u.session = nil
	}
	if u.input != nil {
		errs = append(errs, u.input.Destroy())
		u.input = nil
	}
	if u.output != nil {
		errs = append(errs, u.output.Destroy())
		u.output = nil
	}
	for _, err := range errs {
		if err != nil {
			return errors.Wrap(err, "destroy u2net session")
		}
	}
	return nil
}

// fillU2NetInput 缩放到 size×size（Lanczos），除以全图最大值后按 ImageNet 均值方差归一化，
// 写成 CHW 排列
func fillU2NetInput(dst []float32, img *image.NRGBA, size int) {
	resized := util.ToNRGBA(resize.Resize(uint(size), uint(size), img, resize.Lanczos3))

	var maxVal uint8
	for i := 0; i < len(resized.Pix); i += 4 {
		maxVal = max(maxVal, resized.Pix[i], resized.Pix[i+1], resized.Pix[i+2])
	}
	scale := float32(1e-6)
	if maxVal > 0 {
		scale = float32(maxVal)
	}

	plane := size * size
	for y := 0; y < size; y++ {
		row := y * resized.Stride
		for x := 0; x < size; x++ {
			p := row + x*4
			idx := y*size + x
			for c := 0; c < 3; c++ {
				v := float32(resized.Pix[p+c]) / scale
				dst[c*plane+idx] = (v - u2netMean[c]) / u2netStd[c]
			}
		}
	}
}

// u2netMask 对模型输出做 min-max 归一化得到灰度蒙版
func u2netMask(pred []float32, size int) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, size, size))
	n := size * size
	if len(pred) < n {
		return mask
	}

	lo, hi := pred[0], pred[0]
	for _, v := range pred[:n] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	span := hi - lo
	if span <= 0 {
		return mask
	}

	for i, v := range pred[:n] {
		mask.Pix[i] = uint8((v - lo) / span * 255)
	}
	return mask
}

// applyMask 蒙版缩放回原图尺寸后作为 alpha 通道，颜色保持不变
func applyMask(src *image.NRGBA, mask *image.Gray) *image.NRGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	scaled := resize.Resize(uint(w), uint(h), mask, resize.Lanczos3)

	alpha, ok := scaled.(*image.Gray)
	if !ok || alpha.Rect.Min != (image.Point{}) {
		alpha = image.NewGray(image.Rect(0, 0, w, h))
		draw.Draw(alpha, alpha.Bounds(), scaled, scaled.Bounds().Min, draw.Src)
	}

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s := y*src.Stride + x*4
			d := y*out.Stride + x*4
			copy(out.Pix[d:d+3], src.Pix[s:s+3])
			out.Pix[d+3] = alpha.Pix[y*alpha.Stride+x]
		}
	}
	return out
}
