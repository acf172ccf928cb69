// Package mocks provides function-field test doubles for the shared
// interfaces. Leave a field nil to get a harmless default.
package mocks

import (
	"context"
	"fmt"

	shared "github.com/filiksyos/AI-pull-up-counter/pkg"
	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/pose"
)

// --- Mock Pose Estimator ---
type MockPoseEstimator struct {
	DetectJointsFunc func(ctx context.Context, jpegFrame []byte) (*pose.JointSet, error)
}

func (m *MockPoseEstimator) DetectJoints(ctx context.Context, jpegFrame []byte) (*pose.JointSet, error) {
	if m.DetectJointsFunc != nil {
		return m.DetectJointsFunc(ctx, jpegFrame)
	}
	return nil, nil
}

// --- Mock Frame Source ---
type MockFrameSource struct {
	KeyFramesFunc func(ctx context.Context, path string, interval float64) ([]shared.KeyFrame, error)
}

func (m *MockFrameSource) KeyFrames(ctx context.Context, path string, interval float64) ([]shared.KeyFrame, error) {
	if m.KeyFramesFunc != nil {
		return m.KeyFramesFunc(ctx, path, interval)
	}
	return nil, fmt.Errorf("no frames configured")
}

// --- Mock Progress Sink ---
type MockProgressSink struct {
	PublishFunc func(ctx context.Context, u shared.ProgressUpdate) error

	Updates []shared.ProgressUpdate
}

func (m *MockProgressSink) Publish(ctx context.Context, u shared.ProgressUpdate) error {
	m.Updates = append(m.Updates, u)
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, u)
	}
	return nil
}

// --- Mock Blob Store ---
type MockBlobStore struct {
	WriteFunc func(ctx context.Context, bucket, object string, data []byte) error
	ReadFunc  func(ctx context.Context, bucket, object string) ([]byte, error)
}

func (m *MockBlobStore) Write(ctx context.Context, bucket, object string, data []byte) error {
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, bucket, object, data)
	}
	return nil
}

func (m *MockBlobStore) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, bucket, object)
	}
	return nil, fmt.Errorf("object not found")
}
