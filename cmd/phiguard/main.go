// Command phiguard scans S3 buckets for HIPAA storage safeguards and, when
// asked, remediates the findings.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
