package export

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPutObjectAPI is a mock implementation of PutObjectAPI.
type MockPutObjectAPI struct {
	mock.Mock
}

func (m *MockPutObjectAPI) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

// mockExporter is a function-backed Exporter for testing.
type mockExporter struct {
	exportFunc func(ctx context.Context, name string, data []byte) (string, error)
}

func (m *mockExporter) Export(ctx context.Context, name string, data []byte) (string, error) {
	if m.exportFunc != nil {
		return m.exportFunc(ctx, name, data)
	}
	return "", errors.New("not implemented")
}

func TestS3Exporter_Export(t *testing.T) {
	client := new(MockPutObjectAPI)
	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		body, _ := io.ReadAll(in.Body)
		return aws.ToString(in.Bucket) == "reports-bucket" &&
			aws.ToString(in.Key) == "reports/42.json" &&
			string(body) == `{"ok":true}`
	})).Return(&s3.PutObjectOutput{}, nil)

	e := NewS3ExporterWithClient(client, "reports-bucket", zerolog.Nop())

	location, err := e.Export(context.Background(), "reports/42.json", []byte(`{"ok":true}`))
	require.NoError(t, err)
	assert.Equal(t, "s3://reports-bucket/reports/42.json", location)
	client.AssertExpectations(t)
}

func TestS3Exporter_Error(t *testing.T) {
	client := new(MockPutObjectAPI)
	client.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	e := NewS3ExporterWithClient(client, "reports-bucket", zerolog.Nop())

	_, err := e.Export(context.Background(), "r.json", []byte("{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestFileExporter_Export(t *testing.T) {
	dir := t.TempDir()
	e := NewFileExporter(dir, zerolog.Nop())

	path, err := e.Export(context.Background(), "user-42/2025-03-01.json", []byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "user-42", "2025-03-01.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	// Names cannot escape the export directory.
	path, err = e.Export(context.Background(), "../outside.json", []byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "outside.json"), path)
}

func TestFallbackExporter(t *testing.T) {
	tests := []struct {
		name         string
		s3Enabled    bool
		s3Err        error
		nilS3        bool
		expectS3Call bool
		expected     string
	}{
		{
			name:         "S3 success",
			s3Enabled:    true,
			expectS3Call: true,
			expected:     "s3://bucket/reports/r.json",
		},
		{
			name:         "S3 failure falls back to local",
			s3Enabled:    true,
			s3Err:        errors.New("S3 connection failed"),
			expectS3Call: true,
			expected:     "local/r.json",
		},
		{
			name:      "S3 disabled uses local",
			s3Enabled: false,
			expected:  "local/r.json",
		},
		{
			name:      "Nil S3 exporter uses local",
			s3Enabled: true,
			nilS3:     true,
			expected:  "local/r.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s3Called := false
			var s3Exp Exporter = &mockExporter{
				exportFunc: func(ctx context.Context, name string, data []byte) (string, error) {
					s3Called = true
					assert.Equal(t, "reports/r.json", name, "S3 key should have prefix")
					if tt.s3Err != nil {
						return "", tt.s3Err
					}
					return "s3://bucket/" + name, nil
				},
			}
			if tt.nilS3 {
				s3Exp = nil
			}
			local := &mockExporter{
				exportFunc: func(ctx context.Context, name string, data []byte) (string, error) {
					assert.Equal(t, "r.json", name, "local name should not have prefix")
					return "local/" + name, nil
				},
			}

			e := NewFallbackExporter(s3Exp, local, "reports/", tt.s3Enabled, zerolog.Nop())

			location, err := e.Export(context.Background(), "r.json", []byte("{}"))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, location)
			assert.Equal(t, tt.expectS3Call, s3Called)
		})
	}
}
