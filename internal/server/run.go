package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kode4food/weave/internal/block"
	"github.com/kode4food/weave/pkg/api"
	"github.com/kode4food/weave/pkg/log"
)

func (s *Server) handleHash(c *gin.Context) {
	var spec api.BlockSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(
			http.StatusBadRequest, fmt.Errorf("invalid block spec: %w", err),
		))
		return
	}

	b, err := block.Parse(&spec)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(http.StatusBadRequest, err))
		return
	}

	c.JSON(http.StatusOK, api.HashResponse{
		Type: b.Type(),
		Name: b.Name(),
		Hash: b.InnerHash(),
	})
}

func (s *Server) handleRun(c *gin.Context) {
	var req api.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(
			http.StatusBadRequest, fmt.Errorf("invalid run request: %w", err),
		))
		return
	}

	res, err := s.run(c.Request.Context(), &req, nil)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, errorResponse(status, err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// run parses and executes the requested block once
func (s *Server) run(
	ctx context.Context, req *api.RunRequest, sink api.EventSink,
) (*api.RunResponse, error) {
	b, err := block.Parse(&req.Spec)
	if err != nil {
		return nil, err
	}

	env := s.newEnv(req)
	slog.Info("Block run started",
		log.RunID(env.RunID),
		log.BlockType(b.Type()),
		log.BlockName(b.Name()))

	res, err := b.Execute(ctx, s.runtime, env, sink)
	if err != nil {
		slog.Warn("Block run failed",
			log.RunID(env.RunID),
			log.BlockName(b.Name()),
			log.Error(err))
		return nil, err
	}
	return &api.RunResponse{RunID: env.RunID, Result: res}, nil
}

func (s *Server) newEnv(req *api.RunRequest) *api.Env {
	state := req.State
	if state == nil {
		state = api.Args{}
	}
	return &api.Env{
		Config:      req.Config,
		State:       state,
		Input:       req.Input,
		Map:         req.Map,
		Credentials: req.Credentials,
		Store:       s.store,
		Project:     req.Project,
		RunID:       api.NewRunID(),
	}
}
