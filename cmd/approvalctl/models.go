package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/status"

	"github.com/bibbank/approval/pkg/approval/dto"
	approvalgrpc "github.com/bibbank/approval/pkg/approval/grpc"
)

func newModelsCmd(g *globalFlags) *cobra.Command {
	var (
		offline offlineFlags
		remote  remoteFlags
	)
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Locate model and scaler files and describe their features",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if remote.addr != "" {
				st, err := modelsRemote(cmd.Context(), remote)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), st)
			}

			t, err := lookupTarget(g.service)
			if err != nil {
				return err
			}
			app, err := offline.build(t, g.logger(cmd))
			if err != nil {
				return err
			}
			defer app.Close(cmd.Context())
			return writeJSON(cmd.OutOrStdout(), dto.ModelStatus(app.Predictor(), time.Now().UTC()))
		},
	}
	offline.register(cmd)
	remote.register(cmd)
	return cmd
}

func modelsRemote(ctx context.Context, f remoteFlags) (dto.ModelStatusResponse, error) {
	conn, err := f.dial()
	if err != nil {
		return dto.ModelStatusResponse{}, err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	resp, err := approvalgrpc.NewApprovalServiceClient(conn).GetModelStatus(ctx, &approvalgrpc.GetModelStatusRequest{})
	if err != nil {
		return dto.ModelStatusResponse{}, codeError(4, "%s", status.Convert(err).Message())
	}
	return resp.Status, nil
}
