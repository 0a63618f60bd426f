package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ironsheep/detkit/internal/dataset"
	"github.com/ironsheep/detkit/internal/export"
	"github.com/ironsheep/detkit/internal/visualize"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "dataset_voc2coco", "image_visualize_sample").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// errMissingArg is wrapped when a required tool argument is absent.
var errMissingArg = errors.New("missing required argument")

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Warnf("tool %s failed: %v", params.Name, err)
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler unmarshals its arguments, fills unset optional values
// from the server configuration and calls into export, dataset or visualize.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	switch name {
	// Conversion
	case "dataset_voc2coco":
		return s.handleVOCToCOCO(args)
	case "dataset_generate_voc":
		return s.handleGenerateVOC(args)

	// Inspection
	case "dataset_inspect":
		return s.handleInspect(args)
	case "dataset_sample":
		return s.handleSample(args)
	case "dataset_crops":
		return s.handleCrops(args)

	// Visualization
	case "image_visualize_sample":
		return s.handleVisualizeSample(args)
	case "image_visualize_detections":
		return s.handleVisualizeDetections(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func require(fields map[string]string) error {
	var missing []string
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s", errMissingArg, strings.Join(missing, ", "))
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func int64Or(p *int64, def int64) int64 {
	if p == nil {
		return def
	}
	return *p
}

// === Conversion Handlers ===

type vocToCOCOArgs struct {
	ImageDir    string   `json:"image_dir"`
	AnnoDir     string   `json:"anno_dir"`
	Output      string   `json:"output"`
	LabelList   string   `json:"label_list"`
	TrainRatio  *float64 `json:"train_ratio"`
	BBoxFormat  string   `json:"bbox_format"`
	Seed        *int64   `json:"seed"`
	AllowEmpty  *bool    `json:"allow_empty"`
	EmptyRatio  *float64 `json:"empty_ratio"`
	SampleLimit *int     `json:"sample_limit"`
}

func (s *Server) handleVOCToCOCO(args json.RawMessage) (interface{}, error) {
	var a vocToCOCOArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := require(map[string]string{"image_dir": a.ImageDir, "anno_dir": a.AnnoDir, "output": a.Output}); err != nil {
		return nil, err
	}
	if a.BBoxFormat == "" {
		a.BBoxFormat = s.cfg.BBoxFormat
	}
	return export.VOCToCOCO(export.COCOOptions{
		ImageDir:        a.ImageDir,
		AnnotationDir:   a.AnnoDir,
		Output:          a.Output,
		LabelList:       a.LabelList,
		TrainRatio:      floatOr(a.TrainRatio, s.cfg.TrainRatio),
		BBoxFormat:      export.BBoxFormat(a.BBoxFormat),
		ImageExtensions: s.cfg.ImageExtensions,
		SampleLimit:     intOr(a.SampleLimit, s.cfg.SampleLimit),
		AllowEmpty:      boolOr(a.AllowEmpty, s.cfg.AllowEmpty),
		EmptyRatio:      floatOr(a.EmptyRatio, s.cfg.EmptyRatio),
		Rand:            export.NewRand(int64Or(a.Seed, s.cfg.Seed)),
		Logger:          s.log,
	})
}

type generateVOCArgs struct {
	ImageDir   string   `json:"image_dir"`
	AnnoDir    string   `json:"anno_dir"`
	Output     string   `json:"output"`
	TrainRatio *float64 `json:"train_ratio"`
	Seed       *int64   `json:"seed"`
}

func (s *Server) handleGenerateVOC(args json.RawMessage) (interface{}, error) {
	var a generateVOCArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := require(map[string]string{"image_dir": a.ImageDir, "anno_dir": a.AnnoDir, "output": a.Output}); err != nil {
		return nil, err
	}
	return export.GenerateVOC(export.VOCOptions{
		ImageDir:        a.ImageDir,
		AnnotationDir:   a.AnnoDir,
		Output:          a.Output,
		TrainRatio:      floatOr(a.TrainRatio, s.cfg.TrainRatio),
		ImageExtensions: s.cfg.ImageExtensions,
		Rand:            export.NewRand(int64Or(a.Seed, s.cfg.Seed)),
		Logger:          s.log,
	})
}

// === Inspection Handlers ===

// datasetArgs locates a VOC dataset list file and its label list.
type datasetArgs struct {
	DatasetDir  string   `json:"dataset_dir"`
	ImageDir    string   `json:"image_dir"`
	AnnoPath    string   `json:"anno_path"`
	LabelList   string   `json:"label_list"`
	AllowEmpty  *bool    `json:"allow_empty"`
	EmptyRatio  *float64 `json:"empty_ratio"`
	SampleLimit *int     `json:"sample_limit"`
	Seed        *int64   `json:"seed"`
}

func (s *Server) openDataset(a datasetArgs) (*dataset.VOCDataset, error) {
	if err := require(map[string]string{"dataset_dir": a.DatasetDir, "anno_path": a.AnnoPath}); err != nil {
		return nil, err
	}
	ds := &dataset.VOCDataset{
		DatasetDir:  a.DatasetDir,
		ImageDir:    a.ImageDir,
		AnnoPath:    a.AnnoPath,
		LabelList:   a.LabelList,
		SampleLimit: intOr(a.SampleLimit, s.cfg.SampleLimit),
		AllowEmpty:  boolOr(a.AllowEmpty, s.cfg.AllowEmpty),
		EmptyRatio:  floatOr(a.EmptyRatio, s.cfg.EmptyRatio),
		Rand:        export.NewRand(int64Or(a.Seed, s.cfg.Seed)),
		Logger:      s.log,
	}
	if err := ds.Parse(); err != nil {
		return nil, err
	}
	return ds, nil
}

// InspectResult is the dataset summary with the color each class is drawn in.
type InspectResult struct {
	*dataset.Summary
	Colors []string `json:"colors"`
}

func (s *Server) handleInspect(args json.RawMessage) (interface{}, error) {
	var a datasetArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	ds, err := s.openDataset(a)
	if err != nil {
		return nil, err
	}
	sum, err := dataset.Summarize(ds, ds.Registry())
	if err != nil {
		return nil, err
	}
	colors := make([]string, len(sum.Classes))
	for i, c := range sum.Classes {
		colors[i] = visualize.ClassHex(c.ID)
	}
	return &InspectResult{Summary: sum, Colors: colors}, nil
}

type sampleArgs struct {
	datasetArgs
	Index int `json:"index"`
}

// SampleResult is one sample with its class ids resolved to names.
type SampleResult struct {
	dataset.Sample
	ClassNames []string `json:"class_names"`
}

func (s *Server) loadSample(a sampleArgs) (dataset.Sample, []string, error) {
	ds, err := s.openDataset(a.datasetArgs)
	if err != nil {
		return dataset.Sample{}, nil, err
	}
	sample, err := ds.Get(a.Index)
	if err != nil {
		return dataset.Sample{}, nil, err
	}
	return sample, ds.Registry().Names(), nil
}

func (s *Server) handleSample(args json.RawMessage) (interface{}, error) {
	var a sampleArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	sample, names, err := s.loadSample(a)
	if err != nil {
		return nil, err
	}
	classNames := make([]string, len(sample.Classes))
	for i, id := range sample.Classes {
		if id >= 0 && id < len(names) {
			classNames[i] = names[id]
		}
	}
	return &SampleResult{Sample: sample, ClassNames: classNames}, nil
}

type cropsArgs struct {
	datasetArgs
	Output string `json:"output"`
	Size   int    `json:"size"`
}

func (s *Server) handleCrops(args json.RawMessage) (interface{}, error) {
	var a cropsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := require(map[string]string{"output": a.Output}); err != nil {
		return nil, err
	}
	ds, err := s.openDataset(a.datasetArgs)
	if err != nil {
		return nil, err
	}
	n, err := export.Crops(ds, export.CropOptions{
		OutDir:   a.Output,
		Size:     a.Size,
		Registry: ds.Registry(),
		Logger:   s.log,
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"output":  a.Output,
		"patches": n,
	}, nil
}

// === Visualization Handlers ===

// RenderResult describes a saved visualization.
type RenderResult struct {
	Output string `json:"output"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Drawn  int    `json:"drawn"`
}

type visualizeSampleArgs struct {
	sampleArgs
	Output  string `json:"output"`
	MaxSide int    `json:"max_side"`
}

func (s *Server) handleVisualizeSample(args json.RawMessage) (interface{}, error) {
	var a visualizeSampleArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := require(map[string]string{"output": a.Output}); err != nil {
		return nil, err
	}
	sample, names, err := s.loadSample(a.sampleArgs)
	if err != nil {
		return nil, err
	}
	dets := visualize.SampleDetections(sample)
	// ground truth is always drawn
	opts := visualize.Options{ScoreThreshold: 0, Labels: names}
	defer s.cache.Evict(sample.ImagePath)
	bounds, err := visualize.Render(s.cache, sample.ImagePath, dets, opts, a.Output, a.MaxSide)
	if err != nil {
		return nil, err
	}
	return &RenderResult{Output: a.Output, Width: bounds.Dx(), Height: bounds.Dy(), Drawn: len(dets)}, nil
}

type visualizeDetectionsArgs struct {
	Path           string                `json:"path"`
	Output         string                `json:"output"`
	Detections     []visualize.Detection `json:"detections"`
	Labels         []string              `json:"labels"`
	ScoreThreshold *float64              `json:"score_threshold"`
	MaxSide        int                   `json:"max_side"`
}

func (s *Server) handleVisualizeDetections(args json.RawMessage) (interface{}, error) {
	var a visualizeDetectionsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := require(map[string]string{"path": a.Path, "output": a.Output}); err != nil {
		return nil, err
	}
	threshold := floatOr(a.ScoreThreshold, s.cfg.ScoreThreshold)
	opts := visualize.Options{ScoreThreshold: threshold, Labels: a.Labels}
	defer s.cache.Evict(a.Path)
	bounds, err := visualize.Render(s.cache, a.Path, a.Detections, opts, a.Output, a.MaxSide)
	if err != nil {
		return nil, err
	}
	drawn := 0
	for _, d := range a.Detections {
		if d.Score >= threshold {
			drawn++
		}
	}
	return &RenderResult{Output: a.Output, Width: bounds.Dx(), Height: bounds.Dy(), Drawn: drawn}, nil
}
