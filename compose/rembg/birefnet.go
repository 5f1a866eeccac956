package rembg

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"mime/multipart"
	"os"
	"strings"
	"time"

	"github.com/segmentio/ksuid"

	nhttp "github.com/chaos-io/crowd2png/util/http"
)

const (
	BiRefNetModel = "BiRefNet"

	uploadPath  = "api/upload/image"
	promptPath  = "api/prompt"
	historyPath = "api/history/"
	viewPath    = "api/view"

	inputPlaceholder    = `"__INPUT_IMAGE__"`
	defaultPollInterval = 500 * time.Millisecond
)

//go:embed workflow.json
var workflowData string

// BiRefNetConfig ComfyUI 服务配置
type BiRefNetConfig struct {
	BaseURL      string        `yaml:"base_url" validate:"required,url"`
	WorkflowPath string        `yaml:"workflow_path"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// BiRefNetRemBG 通过 ComfyUI 的 BiRefNet 工作流去除背景
//
// 流程：上传图片 -> 提交 prompt -> 轮询 history -> 下载输出图片
type BiRefNetRemBG struct {
	baseURL      string
	workflow     string
	pollInterval time.Duration
	cli          nhttp.IClient
}

func NewBiRefNetRemBG(cfg BiRefNetConfig) (*BiRefNetRemBG, error) {
	workflow := workflowData
	if cfg.WorkflowPath != "" {
		data, err := os.ReadFile(cfg.WorkflowPath)
		if err != nil {
			return nil, fmt.Errorf("read workflow: %w", err)
		}
		workflow = string(data)
	}
	if !strings.Contains(workflow, inputPlaceholder) {
		return nil, fmt.Errorf("workflow has no %s placeholder", inputPlaceholder)
	}

	return newBiRefNetRemBG(cfg.BaseURL, workflow, cfg.PollInterval, nhttp.NewHTTPClient()), nil
}

func newBiRefNetRemBG(baseURL, workflow string, poll time.Duration, cli nhttp.IClient) *BiRefNetRemBG {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if poll <= 0 {
		poll = defaultPollInterval
	}
	return &BiRefNetRemBG{
		baseURL:      baseURL,
		workflow:     workflow,
		pollInterval: poll,
		cli:          cli,
	}
}

func (b *BiRefNetRemBG) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode input: %w", err)
	}

	uploaded, err := b.uploadImage(ctx, ksuid.New().String()+".png", buf.Bytes())
	if err != nil {
		return nil, err
	}

	promptID, err := b.prompt(ctx, uploaded.path())
	if err != nil {
		return nil, err
	}

	out, err := b.waitOutput(ctx, promptID)
	if err != nil {
		return nil, err
	}

	return b.download(ctx, out)
}

// uploadImageResp 上传接口的响应
//
//	{"name": "my_image1.png", "subfolder": "", "type": "input"}
type uploadImageResp struct {
	Name      string `json:"name"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

func (r *uploadImageResp) path() string {
	if r.Subfolder == "" {
		return r.Name
	}
	return r.Subfolder + "/" + r.Name
}

/*
	curl -X POST "$BASE_URL/api/upload/image" \
	  -F "image=@my_image.png" \
	  -F "type=input" \
	  -F "overwrite=true"
*/
func (b *BiRefNetRemBG) uploadImage(ctx context.Context, name string, data []byte) (*uploadImageResp, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	// image 文件字段
	part, err := writer.CreateFormFile("image", name)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("copy form file: %w", err)
	}

	// 其他字段
	_ = writer.WriteField("type", "input")
	_ = writer.WriteField("overwrite", "true")
	_ = writer.Close()

	resp := &uploadImageResp{}
	reqParam := &nhttp.RequestParam{
		RequestURI: b.baseURL + uploadPath,
		Method:     "POST",
		Header:     map[string]string{"Content-Type": writer.FormDataContentType()},
		Body:       body,
		Response:   resp,
	}
	if err := b.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	if resp.Name == "" {
		return nil, errors.New("upload image: empty name in response")
	}

	slog.Debug("get the upload response", "response", resp)
	return resp, nil
}

type promptResp struct {
	PromptID   string         `json:"prompt_id"`
	Number     int            `json:"number"`
	NodeErrors map[string]any `json:"node_errors"`
}

/*
	curl -X POST "$BASE_URL/api/prompt" \
	  -H "Content-Type: application/json" \
	  -d '{"prompt": '"$(cat workflow.json)"'}'
*/
func (b *BiRefNetRemBG) prompt(ctx context.Context, imageName string) (string, error) {
	quoted, err := json.Marshal(imageName)
	if err != nil {
		return "", fmt.Errorf("marshal image name: %w", err)
	}
	workflow := strings.ReplaceAll(b.workflow, inputPlaceholder, string(quoted))

	wk := map[string]any{}
	if err := json.Unmarshal([]byte(workflow), &wk); err != nil {
		return "", fmt.Errorf("unmarshal workflow data: %w", err)
	}

	resp := &promptResp{}
	reqParam := &nhttp.RequestParam{
		RequestURI: b.baseURL + promptPath,
		Method:     "POST",
		Header:     map[string]string{"Content-Type": "application/json"},
		Body:       map[string]any{"prompt": wk, "client_id": ksuid.New().String()},
		Response:   resp,
	}
	if err := b.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return "", fmt.Errorf("queue prompt: %w", err)
	}
	if len(resp.NodeErrors) > 0 {
		return "", fmt.Errorf("queue prompt: node errors %v", resp.NodeErrors)
	}
	if resp.PromptID == "" {
		return "", errors.New("queue prompt: empty prompt id")
	}

	slog.Debug("prompt queued", "prompt_id", resp.PromptID, "number", resp.Number)
	return resp.PromptID, nil
}

// outputImage history 中的输出图片
type outputImage struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

type historyEntry struct {
	Status struct {
		StatusStr string `json:"status_str"`
		Completed bool   `json:"completed"`
	} `json:"status"`
	Outputs map[string]struct {
		Images []outputImage `json:"images"`
	} `json:"outputs"`
}

// waitOutput 轮询直到工作流产出图片，超时由 ctx 控制
func (b *BiRefNetRemBG) waitOutput(ctx context.Context, promptID string) (*outputImage, error) {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		history := map[string]historyEntry{}
		reqParam := &nhttp.RequestParam{
			RequestURI: b.baseURL + historyPath + promptID,
			Method:     "GET",
			Response:   &history,
		}
		if err := b.cli.DoHTTPRequest(ctx, reqParam); err != nil {
			return nil, fmt.Errorf("get history: %w", err)
		}

		if entry, ok := history[promptID]; ok {
			if entry.Status.StatusStr == "error" {
				return nil, fmt.Errorf("prompt %s failed", promptID)
			}
			for _, out := range entry.Outputs {
				if len(out.Images) > 0 {
					return &out.Images[0], nil
				}
			}
			if entry.Status.Completed {
				return nil, fmt.Errorf("prompt %s completed without images", promptID)
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (b *BiRefNetRemBG) download(ctx context.Context, out *outputImage) (image.Image, error) {
	var data []byte
	reqParam := &nhttp.RequestParam{
		RequestURI: b.baseURL + viewPath,
		Method:     "GET",
		Query: map[string]string{
			"filename":  out.Filename,
			"subfolder": out.Subfolder,
			"type":      out.Type,
		},
		Response: &data,
	}
	if err := b.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("download output: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode output: %w", err)
	}
	return img, nil
}
