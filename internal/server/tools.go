package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        typ,
		"description": description,
	}
}

// datasetProperties describes the arguments shared by tools that read a
// VOC list file.
func datasetProperties() map[string]interface{} {
	return map[string]interface{}{
		"dataset_dir":  prop("string", "Absolute path to the dataset root"),
		"image_dir":    prop("string", "Directory under dataset_dir that list paths are relative to"),
		"anno_path":    prop("string", "List file under dataset_dir with lines of '<image> <annotation>'"),
		"label_list":   prop("string", "Optional label file under dataset_dir, one class per line. Omit to number classes in first-seen order"),
		"allow_empty":  prop("boolean", "Keep images without boxes"),
		"empty_ratio":  prop("number", "With a value in [0,1), keep floor(images_with_boxes * empty_ratio) empty images; otherwise keep all"),
		"sample_limit": prop("integer", "Use at most this many annotations; -1 for no limit"),
		"seed":         prop("integer", "Random seed for empty-image selection; 0 seeds from the clock"),
	}
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Conversion
		{
			Name:        "dataset_voc2coco",
			Description: "Convert a directory of images and a directory of VOC XML annotations into a COCO dataset with train.json, eval.json and a JPEGImages copy under <output>/COCODataset.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image_dir":    prop("string", "Absolute path to the directory of images"),
					"anno_dir":     prop("string", "Absolute path to the directory of VOC XML files"),
					"output":       prop("string", "Absolute path of the output root"),
					"label_list":   prop("string", "Optional label file fixing class ids, one class per line"),
					"train_ratio":  prop("number", "Share of images written to train.json, in [0,1]"),
					"bbox_format":  prop("string", "Layout of bbox arrays: xyxy (default) or xywh"),
					"seed":         prop("integer", "Shuffle seed; 0 seeds from the clock"),
					"allow_empty":  prop("boolean", "Keep images without boxes"),
					"empty_ratio":  prop("number", "With a value in [0,1), keep floor(images_with_boxes * empty_ratio) empty images; otherwise keep all"),
					"sample_limit": prop("integer", "Use at most this many annotations; -1 for no limit"),
				},
				"required": []string{"image_dir", "anno_dir", "output"},
			},
		},
		{
			Name:        "dataset_generate_voc",
			Description: "Copy paired images and VOC annotations into <output>/VOCDataset and write train_list.txt, eval_list.txt and lable_list.txt.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image_dir":   prop("string", "Absolute path to the directory of images"),
					"anno_dir":    prop("string", "Absolute path to the directory of VOC XML files"),
					"output":      prop("string", "Absolute path of the output root"),
					"train_ratio": prop("number", "Share of pairs written to train_list.txt, in [0,1]"),
					"seed":        prop("integer", "Shuffle seed; 0 seeds from the clock"),
				},
				"required": []string{"image_dir", "anno_dir", "output"},
			},
		},

		// Inspection
		{
			Name:        "dataset_inspect",
			Description: "Parse a VOC dataset and report sample, box and per-class counts together with the color each class is drawn in.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": datasetProperties(),
				"required":   []string{"dataset_dir", "anno_path"},
			},
		},
		{
			Name:        "dataset_sample",
			Description: "Return one parsed sample of a VOC dataset: image path, size, boxes, class ids and names, scores and difficult flags.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(datasetProperties(), map[string]interface{}{
					"index": prop("integer", "Sample index (0-based)"),
				}),
				"required": []string{"dataset_dir", "anno_path", "index"},
			},
		},
		{
			Name:        "dataset_crops",
			Description: "Write every ground-truth box of a VOC dataset as a PNG patch under <output>/<class>/.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(datasetProperties(), map[string]interface{}{
					"output": prop("string", "Absolute path of the output directory"),
					"size":   prop("integer", "Resize each patch to size x size pixels; 0 keeps the box size"),
				}),
				"required": []string{"dataset_dir", "anno_path", "output"},
			},
		},

		// Visualization
		{
			Name:        "image_visualize_sample",
			Description: "Draw the ground-truth boxes of one dataset sample in their class colors with captions and save the image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(datasetProperties(), map[string]interface{}{
					"index":    prop("integer", "Sample index (0-based)"),
					"output":   prop("string", "Absolute path of the image to write (.png, .jpg or .bmp)"),
					"max_side": prop("integer", "Shrink the result so neither side exceeds this; 0 keeps the size"),
				}),
				"required": []string{"dataset_dir", "anno_path", "index", "output"},
			},
		},
		{
			Name:        "image_visualize_detections",
			Description: "Draw detections on an image. Each box is outlined in its class color and captioned '<label>-<score>'. Detections below score_threshold are skipped.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   prop("string", "Absolute path to the image file"),
					"output": prop("string", "Absolute path of the image to write (.png, .jpg or .bmp)"),
					"detections": map[string]interface{}{
						"type":        "array",
						"description": "Detections to draw",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"class_id": map[string]interface{}{"type": "integer"},
								"score":    map[string]interface{}{"type": "number"},
								"box": map[string]interface{}{
									"type":        "array",
									"description": "[x1, y1, x2, y2] in pixels",
									"items":       map[string]interface{}{"type": "number"},
									"minItems":    4,
									"maxItems":    4,
								},
							},
							"required": []string{"class_id", "score", "box"},
						},
					},
					"labels": map[string]interface{}{
						"type":        "array",
						"description": "Class names indexed by class_id",
						"items":       map[string]interface{}{"type": "string"},
					},
					"score_threshold": prop("number", "Minimum score to draw (default from configuration, 0.5)"),
					"max_side":        prop("integer", "Shrink the result so neither side exceeds this; 0 keeps the size"),
				},
				"required": []string{"path", "output", "detections"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
