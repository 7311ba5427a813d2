package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/bibbank/approval/pkg/approval"
	"github.com/bibbank/approval/pkg/approval/dto"
	approvalgrpc "github.com/bibbank/approval/pkg/approval/grpc"
	"github.com/bibbank/approval/pkg/tlsutil"
)

// remoteFlags address a running service over gRPC.
type remoteFlags struct {
	addr       string
	caFile     string
	serverName string
	timeout    time.Duration
}

func (f *remoteFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.addr, "addr", "", "gRPC address of a running service; empty scores in-process")
	fs.StringVar(&f.caFile, "ca-file", "", "CA certificate enabling TLS to --addr")
	fs.StringVar(&f.serverName, "server-name", "", "TLS server name override")
	fs.DurationVar(&f.timeout, "timeout", 10*time.Second, "Deadline for remote calls")
}

func (f *remoteFlags) dial() (*grpc.ClientConn, error) {
	creds := insecure.NewCredentials()
	if f.caFile != "" {
		tlsCreds, err := tlsutil.ClientTLSConfig(f.caFile, f.serverName)
		if err != nil {
			return nil, codeError(3, "%s", err)
		}
		creds = tlsCreds
	}
	return dialWith(f.addr, creds)
}

func dialWith(addr string, creds credentials.TransportCredentials) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, codeError(4, "dial %s: %s", addr, err)
	}
	return conn, nil
}

func newScoreCmd(g *globalFlags) *cobra.Command {
	var (
		offline offlineFlags
		remote  remoteFlags
		sample  bool
	)
	cmd := &cobra.Command{
		Use:   "score [applicant.json|-]",
		Short: "Score one applicant and print the prediction as JSON",
		Long: "Score reads an applicant JSON object from a file, from stdin (\"-\" or no argument) " +
			"or from the built-in sample, and runs it through the same pipeline the service uses.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := lookupTarget(g.service)
			if err != nil {
				return err
			}

			var applicant map[string]any
			if sample {
				applicant = t.sample()
			} else {
				path := "-"
				if len(args) == 1 {
					path = args[0]
				}
				if applicant, err = readApplicant(cmd.InOrStdin(), path); err != nil {
					return err
				}
			}

			var resp dto.PredictionResponse
			if remote.addr != "" {
				resp, err = scoreRemote(cmd.Context(), remote, applicant)
			} else {
				resp, err = scoreOffline(cmd.Context(), offline, t, g.logger(cmd), applicant)
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}
	offline.register(cmd)
	remote.register(cmd)
	cmd.Flags().BoolVar(&sample, "sample", false, "Score the built-in sample applicant")
	return cmd
}

func scoreOffline(ctx context.Context, f offlineFlags, t target, logger *slog.Logger, applicant map[string]any) (dto.PredictionResponse, error) {
	app, err := f.build(t, logger)
	if err != nil {
		return dto.PredictionResponse{}, err
	}
	defer app.Close(ctx)

	pred, err := app.Predictor().Predict(ctx, applicant)
	if err != nil {
		if approval.IsClientError(err) {
			return dto.PredictionResponse{}, codeError(2, "%s", err)
		}
		return dto.PredictionResponse{}, codeError(1, "prediction failed: %s", err)
	}
	return dto.FromPrediction(pred), nil
}

func scoreRemote(ctx context.Context, f remoteFlags, applicant map[string]any) (dto.PredictionResponse, error) {
	conn, err := f.dial()
	if err != nil {
		return dto.PredictionResponse{}, err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	resp, err := approvalgrpc.NewApprovalServiceClient(conn).Predict(ctx, &approvalgrpc.PredictRequest{Applicant: applicant})
	if err != nil {
		return dto.PredictionResponse{}, codeError(4, "%s", status.Convert(err).Message())
	}
	return resp.Result, nil
}

func readApplicant(stdin io.Reader, path string) (map[string]any, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, codeError(3, "read applicant: %s", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var applicant map[string]any
	if err := dec.Decode(&applicant); err != nil {
		return nil, codeError(2, "invalid applicant JSON: %s", err)
	}
	if len(applicant) == 0 {
		return nil, codeError(2, "no applicant data provided")
	}
	return applicant, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
