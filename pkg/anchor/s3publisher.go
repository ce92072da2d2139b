package anchor

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/golang/snappy"

	"github.com/tedy97123/accountabiltyme/pkg/domain"
	"github.com/tedy97123/accountabiltyme/pkg/merkletree"
)

// S3PublisherConfig configures S3Publisher, mirroring the teacher lineage's
// own S3 artifact store configuration shape.
type S3PublisherConfig struct {
	Bucket   string
	Region   string
	Endpoint string // optional custom endpoint (MinIO, LocalStack)
	Prefix   string
}

// S3Publisher witnesses a batch's Merkle root by uploading its snappy
// compressed leaf hashes to S3 and recording an s3://bucket/key reference
// as the batch's external reference, with the resulting object version id
// appended after "#" when the bucket returns one (§4.9's "S3 version"
// witness example), grounded on the teacher lineage's S3-backed artifact
// store.
type S3Publisher struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Publisher loads the default AWS config and builds an S3Publisher.
func NewS3Publisher(ctx context.Context, cfg S3PublisherConfig) (*S3Publisher, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("anchor: load AWS config: %w", err)
	}

	clientOpts := func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}

	return &S3Publisher{
		client: s3.NewFromConfig(awsCfg, clientOpts),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// encodeLeaves packs a batch's leaf hashes into a flat binary payload
// (4-byte leaf count, then each leaf as a 32-byte hash) before snappy
// compression.
func encodeLeaves(leaves []merkletree.Leaf) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(leaves))); err != nil {
		return nil, err
	}
	for _, l := range leaves {
		raw, err := hex.DecodeString(l.Hash)
		if err != nil {
			return nil, fmt.Errorf("anchor: leaf hash is not hex: %w", err)
		}
		buf.Write(raw)
	}
	return buf.Bytes(), nil
}

func (p *S3Publisher) Publish(ctx context.Context, batch domain.AnchorBatch, leaves []merkletree.Leaf) (string, error) {
	raw, err := encodeLeaves(leaves)
	if err != nil {
		return "", err
	}
	compressed := snappy.Encode(nil, raw)

	key := fmt.Sprintf("%sanchors/%s.snappy", p.prefix, batch.BatchID)
	out, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(compressed),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"merkle-root":    batch.MerkleRoot,
			"start-sequence": fmt.Sprintf("%d", batch.StartSequence),
			"end-sequence":   fmt.Sprintf("%d", batch.EndSequence),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anchor: s3 put failed for batch %s: %w", batch.BatchID, err)
	}

	if out.VersionId != nil && *out.VersionId != "" {
		return fmt.Sprintf("s3://%s/%s#%s", p.bucket, key, *out.VersionId), nil
	}
	return fmt.Sprintf("s3://%s/%s", p.bucket, key), nil
}
