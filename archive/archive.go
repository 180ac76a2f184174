/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 *
 * Package archive persists completed game results as JSON objects in an
 * Amazon S3 bucket. Archival is best effort; callers treat failures as
 * log-worthy rather than fatal.
 */
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mikeb26/customslobby-bot/lobby"
)

// S3Archiver stores completed results in Amazon S3, one object per game.
type S3Archiver struct {
	// Config is the Amazon S3 configuration.
	Config aws.Config

	// Client is the s3 client the archiver uses when interacting with S3.
	// By default this is initialized in Init() with the default Config, but
	// callers can optionally override this with their own s3 client if
	// desired.
	Client *s3.Client

	// bucketName is the name of the S3 bucket in Amazon S3.
	// Example: "mybucket".
	bucketName string
}

// New returns a new S3Archiver with underlying storage in the specified
// Amazon S3 bucket. Callers should take care to invoke Init() on the
// returned archiver before use.
func New(bucketNameIn string) *S3Archiver {
	return &S3Archiver{
		bucketName: bucketNameIn,
	}
}

// The default configuration sources are:
// * Environment Variables (e.g. AWS_ACCESS_KEY_ID and AWS_SECRET_KEY)
// * Shared Configuration and Shared Credentials files.
// To use different credentials, modify the returned archiver's Config and
// Client fields.
func (a *S3Archiver) Init(ctx context.Context) error {
	var err error
	a.Config, err = config.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("archive.init: failed to load AWS config: %w", err)
	}
	a.Client = s3.NewFromConfig(a.Config)

	// Permission check: verify bucket exists and is accessible
	if _, err = a.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucketName),
	}); err != nil {
		return fmt.Errorf("archive.init: head bucket failed for %s: %w",
			a.bucketName, err)
	}

	return nil
}

// Archive writes the result to the bucket under
// results/<scope>/<handle>-<timestamp>.json.
func (a *S3Archiver) Archive(ctx context.Context,
	res lobby.CompletedResult) error {

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("archive.put: failed to encode result %v: %w",
			res.Handle, err)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(a.bucketName),
		Key:         aws.String(objectKey(res)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}
	_, err = a.Client.PutObject(ctx, input)
	if err != nil {
		return fmt.Errorf("archive.put: put failed for %v%v: %w",
			*input.Bucket, *input.Key, err)
	}

	return nil
}

func objectKey(res lobby.CompletedResult) string {
	return fmt.Sprintf("/results/%v/%v-%v.json", res.Scope, res.Handle,
		res.CompletedAt.UTC().Format(time.RFC3339))
}
