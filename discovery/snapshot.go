package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"volna/common"
	"volna/types"
)

// Snapshotter writes a JSON record of each fresh discovery batch to S3.
// Purely observational: failures are logged and never affect the batch.
type Snapshotter struct {
	s3     *common.S3
	bucket string
	prefix string
}

// NewSnapshotter wraps an S3 client with a target bucket/prefix.
func NewSnapshotter(s3 *common.S3, bucket, prefix string) *Snapshotter {
	if prefix != "" {
		prefix = strings.Trim(prefix, "/") + "/"
	}
	return &Snapshotter{s3: s3, bucket: bucket, prefix: prefix}
}

type batchSnapshot struct {
	SourceKey types.SourceKey        `json:"source_key"`
	FetchedAt time.Time              `json:"fetched_at"`
	ItemCount int                    `json:"item_count"`
	Items     []types.DiscoveredItem `json:"items"`
}

// Store uploads one batch. Runs detached from the request context with its
// own short timeout.
func (s *Snapshotter) Store(key types.SourceKey, items []types.DiscoveredItem) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now().UTC()
	payload, err := json.MarshalIndent(batchSnapshot{
		SourceKey: key,
		FetchedAt: now,
		ItemCount: len(items),
		Items:     items,
	}, "", "  ")
	if err != nil {
		log.Printf("Snapshot: marshal failed for %s: %v", key, err)
		return
	}

	objKey := fmt.Sprintf("%sdiscover/%s/%d.json",
		s.prefix, strings.ReplaceAll(string(key), ":", "/"), now.Unix())
	if err := s.s3.Put(ctx, s.bucket, objKey, bytes.NewReader(payload), "application/json", "public, max-age=300"); err != nil {
		log.Printf("Snapshot: S3 upload failed for %s: %v", key, err)
		return
	}
	log.Printf("Snapshot: stored %s (%d items)", objKey, len(items))
}
