// Package server implements the MCP (Model Context Protocol) server for
// detection dataset tools.
//
// Requests and responses are JSON-RPC 2.0 objects, one per line. Run uses
// stdin and stdout; Serve accepts any reader and writer. The methods handled
// are initialize, notifications/initialized, tools/list, tools/call and
// ping. Anything else is answered with -32601.
//
// # Available Tools
//
// Conversion:
//   - dataset_voc2coco: VOC annotations to COCO train/eval documents
//   - dataset_generate_voc: VOC annotations to a VOC list-file dataset
//
// Inspection:
//   - dataset_inspect: Sample, box and per-class counts
//   - dataset_sample: One parsed sample
//   - dataset_crops: Per-class patches of every box
//
// Visualization:
//   - image_visualize_sample: Draw a sample's ground truth
//   - image_visualize_detections: Draw caller-supplied detections
//
// Optional tool arguments that are omitted take their value from the
// config.Config the server was created with.
//
// # Image Caching
//
// A source image is decoded into the server's cache for the duration of the
// call that draws it and evicted afterwards, so the next call reads the
// file again. Datasets are parsed again on every call as well.
//
// # Errors
//
// Unparseable tools/call params yield -32602. A tool that fails yields
// -32000 "Tool execution failed" with the Go error text in data. Successful
// results are JSON text inside a single MCP text content item.
//
// # Usage
//
//	srv := server.New(cfg, logging.GetOrCreate("server"))
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
