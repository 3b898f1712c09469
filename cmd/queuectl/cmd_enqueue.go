package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/srand/jolt/testqueue/pkg/bucket"
	"github.com/srand/jolt/testqueue/pkg/log"
	"github.com/srand/jolt/testqueue/pkg/utils"
	"gopkg.in/yaml.v3"
)

// A file describing buckets to enqueue.
//
// Tests listed under "tests" are split into buckets of at most
// "bucketSize" tests, all sharing "configuration". Buckets listed under
// "buckets" are enqueued as they are.
type enqueueFile struct {
	Configuration bucket.Configuration `yaml:"configuration"`
	BucketSize    int                  `yaml:"bucketSize"`
	Tests         []bucket.TestEntry   `yaml:"tests"`
	Buckets       []*bucket.Bucket     `yaml:"buckets"`
}

func parseEnqueueFile(data []byte) ([]*bucket.Bucket, error) {
	file := enqueueFile{}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrParse, err)
	}

	if file.BucketSize <= 0 {
		file.BucketSize = 1
	}

	buckets := []*bucket.Bucket{}
	for start := 0; start < len(file.Tests); start += file.BucketSize {
		end := min(start+file.BucketSize, len(file.Tests))
		buckets = append(buckets, bucket.NewBucket(file.Tests[start:end], file.Configuration))
	}

	for _, b := range file.Buckets {
		if b == nil {
			continue
		}
		if b.Id == "" {
			b.Id = bucket.NewBucketId()
		}
		buckets = append(buckets, b)
	}

	if len(buckets) == 0 {
		return nil, fmt.Errorf("%w: no tests or buckets", utils.ErrParse)
	}

	return buckets, nil
}

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <file>",
	Short: "Enqueue buckets described in a YAML file, - for stdin",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := DefaultDeadlineContext()
		defer cancel()

		var reader io.Reader = os.Stdin
		if args[0] != "-" {
			file, err := os.Open(args[0])
			if err != nil {
				log.Fatal(err)
			}
			defer file.Close()
			reader = file
		}

		data, err := io.ReadAll(reader)
		if err != nil {
			log.Fatal(err)
		}

		buckets, err := parseEnqueueFile(data)
		if err != nil {
			log.Fatal(err)
		}

		ids, err := NewQueueClient().Enqueue(ctx, buckets)
		if err != nil {
			log.Fatal(err)
		}

		for _, id := range ids {
			fmt.Println(id)
		}
	},
}

func init() {
	rootCmd.AddCommand(enqueueCmd)
}
