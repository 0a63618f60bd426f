// Package dataset loads detection datasets into indexable sample sequences.
//
// Every dataset implements Dataset: Parse populates it once, Get returns a
// copy of a sample (passed through the installed transform, if any), and Len
// reports the sample count. Two implementations are provided:
//
//   - VOCDataset reads a VOC list file, parses each annotation and assembles
//     samples with class ids from a label file or from first-seen order.
//   - ImageFolder lists the images in a directory for prediction-time use.
//
// # Assembly
//
// Assembler turns parsed annotations into samples. It caps the entry count
// at SampleLimit, keeps or samples images without boxes according to
// AllowEmpty and EmptyRatio, and numbers images by final position.
//
// Summarize reports sample, box and per-class counts of any Dataset.
package dataset
