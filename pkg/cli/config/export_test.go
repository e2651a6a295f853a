package config

import "time"

// NewStorageForTest creates a Storage config for testing purposes
func NewStorageForTest(backend, dir string) *Storage {
	return &Storage{backend: backend, dir: dir}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

// NewExtractorForTest creates an Extractor config for testing purposes
func NewExtractorForTest(url string, timeout time.Duration) *Extractor {
	return &Extractor{url: url, timeout: timeout, burst: 1}
}

// NewCatalogForTest creates a Catalog config for testing purposes
func NewCatalogForTest(dimension, topK, parallelThreshold, workers int) *Catalog {
	return &Catalog{dimension: dimension, topK: topK, parallelThreshold: parallelThreshold, workers: workers}
}

// NewManifestForTest creates a Manifest config for testing purposes
func NewManifestForTest(path string) *Manifest {
	return &Manifest{path: path}
}
