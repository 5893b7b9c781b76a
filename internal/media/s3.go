package media

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	groupPrefix  = "group_message_images/"
	directPrefix = "direct_message_images/"
)

// S3Purger deletes a conversation's uploaded images when the conversation
// is torn down. Uploads themselves happen client-side against presigned
// URLs; the server only ever cleans up.
type S3Purger struct {
	client *s3.Client
	bucket string
}

func NewS3Purger(ctx context.Context, region, bucket string) (*S3Purger, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &S3Purger{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
	}, nil
}

// PurgeGroup removes every object under the group's image prefix.
func (p *S3Purger) PurgeGroup(ctx context.Context, groupId string) error {
	return p.purgePrefix(ctx, groupPrefix+groupId+"/")
}

// PurgeThread removes every object under the thread's image prefix.
func (p *S3Purger) PurgeThread(ctx context.Context, threadId string) error {
	return p.purgePrefix(ctx, directPrefix+threadId+"/")
}

func (p *S3Purger) purgePrefix(ctx context.Context, prefix string) error {
	paginator := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list objects under %q: %w", prefix, err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		objects := make([]s3types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			objects = append(objects, s3types.ObjectIdentifier{Key: obj.Key})
		}

		_, err = p.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(p.bucket),
			Delete: &s3types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("delete objects under %q: %w", prefix, err)
		}
	}

	return nil
}
