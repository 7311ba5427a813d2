package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/bibbank/approval/pkg/tlsutil"
)

func newCertsCmd() *cobra.Command {
	var (
		hosts    []string
		outDir   string
		validFor time.Duration
	)
	cmd := &cobra.Command{
		Use:   "certs",
		Short: "Write a development CA and gRPC server certificate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := tlsutil.GenerateSelfSignedCert(hosts, outDir, validFor); err != nil {
				return codeError(3, "%s", err)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(),
				"wrote %s and %s\nstart the service with GRPC_TLS_CERT_FILE=%s GRPC_TLS_KEY_FILE=%s\n",
				filepath.Join(outDir, tlsutil.CAFile),
				filepath.Join(outDir, tlsutil.ServerFile),
				filepath.Join(outDir, tlsutil.ServerFile),
				filepath.Join(outDir, tlsutil.ServerKeyFile),
			)
			return err
		},
	}
	fs := cmd.Flags()
	fs.StringSliceVar(&hosts, "hosts", []string{"localhost", "127.0.0.1"}, "DNS names and IPs the server certificate is valid for")
	fs.StringVar(&outDir, "out", "certs", "Output directory")
	fs.DurationVar(&validFor, "valid-for", 365*24*time.Hour, "Certificate lifetime")
	return cmd
}
