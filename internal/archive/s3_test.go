package archive

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	if in.Body != nil {
		f.body, _ = io.ReadAll(in.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestSnapshotKey(t *testing.T) {
	at := time.Date(2024, 3, 7, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*3600))
	assert.Equal(t, "snapshots/store-revenue/2024/03/08/abc.json", SnapshotKey("snapshots", "store-revenue", at, "abc"))
	assert.Equal(t, "store-revenue/2024/03/08/abc.json", SnapshotKey("", "store-revenue", at, "abc"))
}

func TestArchiveSnapshotUploadsJSON(t *testing.T) {
	putter := &fakePutter{}
	a := newS3Archiver(putter, "sales", "snapshots")
	a.newID = func() string { return "fixed" }

	key, err := a.ArchiveSnapshot(context.Background(), "store-revenue",
		[]map[string]string{{"Store": "A", "Revenue": "1,000"}},
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "snapshots/store-revenue/2024/01/02/fixed.json", key)
	assert.Equal(t, "sales", aws.ToString(putter.input.Bucket))
	assert.Equal(t, key, aws.ToString(putter.input.Key))
	assert.Equal(t, "application/json", aws.ToString(putter.input.ContentType))
	assert.JSONEq(t, `[{"Store":"A","Revenue":"1,000"}]`, string(putter.body))
}

func TestArchiveSnapshotError(t *testing.T) {
	a := newS3Archiver(&fakePutter{err: errors.New("denied")}, "sales", "")
	_, err := a.ArchiveSnapshot(context.Background(), "x", nil, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
}
