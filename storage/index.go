package storage

import (
	"context"
	"fmt"
	"log"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/openglass/glassesd/recording"
	"github.com/openglass/glassesd/utils"
)

// BuildIndex lists every uploaded recording under the device namespace,
// following continuation tokens until the listing is exhausted, and returns
// entries sorted most recent first. The index is rebuilt from the store on
// every call; nothing is cached.
func (s *Store) BuildIndex(ctx context.Context) ([]utils.RecordingEntry, error) {
	var entries []utils.RecordingEntry
	prefix := s.opts.Prefix + "/"

	var continuationToken *string
	for {
		resp, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.opts.Bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list recordings: %w", err)
		}

		for _, obj := range resp.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(strings.ToLower(key), ".mp4") {
				continue
			}

			fileName := path.Base(key)
			id := strings.TrimSuffix(fileName, path.Ext(fileName))

			entries = append(entries, utils.RecordingEntry{
				ID:        id,
				FileName:  fileName,
				StartedAt: resolveStartedAt(key, obj.LastModified),
			})
		}

		if aws.ToBool(resp.IsTruncated) {
			continuationToken = resp.NextContinuationToken
		} else {
			break
		}
	}

	// ISO-8601 UTC strings sort chronologically as strings.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].StartedAt > entries[j].StartedAt
	})

	log.Printf("IDX: Built index from remote store with %d recordings", len(entries))
	return entries, nil
}

// Page returns one page of the freshly rebuilt index starting at offset.
func (s *Store) Page(ctx context.Context, offset int) ([]utils.RecordingEntry, error) {
	entries, err := s.BuildIndex(ctx)
	if err != nil {
		return nil, err
	}
	return PageEntries(entries, offset, s.opts.PageSize), nil
}

// PageEntries slices one page out of a full index. Out-of-range offsets
// yield an empty page.
func PageEntries(entries []utils.RecordingEntry, offset, limit int) []utils.RecordingEntry {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(entries) {
		return []utils.RecordingEntry{}
	}
	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}
	return entries[offset:end]
}

// resolveStartedAt recovers a recording's start time: first from the
// rec_<timestamp> token in the key, then from the object's remote
// modification time, and as a last resort the current time.
func resolveStartedAt(key string, lastModified *time.Time) string {
	fileName := path.Base(key)
	base := strings.TrimSuffix(fileName, path.Ext(fileName))

	if token, ok := strings.CutPrefix(base, "rec_"); ok {
		if t, err := time.Parse(recording.TimestampLayout, token); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
		log.Printf("IDX: Failed to parse timestamp from key %s", key)
	}

	if lastModified != nil {
		return lastModified.UTC().Format(time.RFC3339)
	}

	return time.Now().UTC().Format(time.RFC3339)
}
