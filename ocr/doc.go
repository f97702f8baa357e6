// Package ocr owns the recognition side of text extraction: a small backend
// contract that a concrete engine (Tesseract via gosseract, or a fake in
// tests) implements, and a Worker that holds one long-lived backend for a
// fixed language model, creates it on first use and serializes recognition
// calls against it.
package ocr
