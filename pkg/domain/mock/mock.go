// Package mock holds moq-generated mocks of the domain interfaces.
package mock

//go:generate go tool moq -out mock_gen.go -pkg mock ../interfaces ArtifactStore FeatureExtractor
