package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/sirupsen/logrus"

	"pgm-split-go/internal/output"
)

func main() {
	var (
		path  = flag.String("path", "", "Path to frame log .bin file")
		limit = flag.Int("limit", 0, "Number of records to dump (0 for all)")
	)
	flag.Parse()

	if *path == "" {
		logrus.Fatal("path is required")
	}

	f, err := os.Open(*path)
	if err != nil {
		logrus.Fatalf("open frame log: %v", err)
	}
	defer f.Close()

	count := 0
	err = output.ReadFrameLog(f, func(entry output.LogEntry) bool {
		if *limit > 0 && count >= *limit {
			return false
		}
		var decoded any
		if err := cbor.Unmarshal(entry.Payload, &decoded); err != nil {
			logrus.Warnf("record %d: CBOR decode error: %v", count, err)
			count++
			return true
		}
		pretty, err := json.MarshalIndent(output.NormalizeJSONValue(decoded), "", "  ")
		if err != nil {
			logrus.Warnf("record %d: JSON encode error: %v", count, err)
			count++
			return true
		}
		logrus.Infof("record %d timestamp=%s size=%d", count, entry.Timestamp.Format(time.RFC3339Nano), len(entry.Payload))
		fmt.Println(string(pretty))
		count++
		return true
	})
	if err != nil {
		logrus.Fatalf("read frame log: %v", err)
	}
}
