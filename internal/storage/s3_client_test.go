package storage

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectAPI struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
}

func (f *fakeObjectAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestPutJSON(t *testing.T) {
	api := &fakeObjectAPI{}
	c := NewClientWithAPI(S3Config{Bucket: "recaps"}, api)

	err := c.PutJSON(context.Background(), "drafts/m1/d1.json", map[string]string{"status": "generated"})
	require.NoError(t, err)

	require.Len(t, api.inputs, 1)
	assert.Equal(t, "recaps", aws.ToString(api.inputs[0].Bucket))
	assert.Equal(t, "drafts/m1/d1.json", aws.ToString(api.inputs[0].Key))
	assert.Equal(t, "application/json", aws.ToString(api.inputs[0].ContentType))

	var got map[string]string
	require.NoError(t, json.Unmarshal(api.bodies[0], &got))
	assert.Equal(t, "generated", got["status"])
}

func TestPutJSONRequiresKey(t *testing.T) {
	c := NewClientWithAPI(S3Config{Bucket: "recaps"}, &fakeObjectAPI{})
	assert.Error(t, c.PutJSON(context.Background(), "", struct{}{}))
}

func TestPresignGetUnavailableWithoutPresigner(t *testing.T) {
	c := NewClientWithAPI(S3Config{Bucket: "recaps"}, &fakeObjectAPI{})
	_, err := c.PresignGet(context.Background(), "k")
	assert.Error(t, err)
}

func TestNewClientValidates(t *testing.T) {
	_, err := NewClient(context.Background(), S3Config{})
	assert.Error(t, err)
}
