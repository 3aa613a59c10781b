package grpc_control

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"crypto-tracker/src/catalog"
	"crypto-tracker/src/config"
	"crypto-tracker/src/interfaces"
	"crypto-tracker/src/logger"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ControlService implements ControlServer on top of the tracker
type ControlService struct {
	Config     *config.Config
	Tracker    interfaces.ITrackerController
	Catalog    *catalog.Catalog
	ConfigPath string
	Logger     *logger.Logger

	saveMu sync.Mutex
}

// NewControlService creates a new instance of ControlService. With a non-empty
// cfgPath every watch-list change is written back to the config file.
func NewControlService(
	cfg *config.Config,
	tracker interfaces.ITrackerController,
	known *catalog.Catalog,
	cfgPath string,
	log *logger.Logger,
) *ControlService {
	return &ControlService{
		Config:     cfg,
		Tracker:    tracker,
		Catalog:    known,
		ConfigPath: cfgPath,
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

func symbolArg(req *wrapperspb.StringValue) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.GetValue()))
	if symbol == "" {
		return "", status.Error(codes.InvalidArgument, "symbol is required")
	}
	return symbol, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) AddAsset(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	symbol, err := symbolArg(req)
	if err != nil {
		return nil, err
	}

	added := s.Tracker.AddAsset(symbol)
	if added {
		s.Logger.Info("gRPC: AddAsset %s", symbol)
		s.saveWatchlist()
	}
	return wrapperspb.Bool(added), nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) RemoveAsset(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	symbol, err := symbolArg(req)
	if err != nil {
		return nil, err
	}

	removed := s.Tracker.RemoveAsset(symbol)
	if removed {
		s.Logger.Info("gRPC: RemoveAsset %s", symbol)
		s.saveWatchlist()
	}
	return wrapperspb.Bool(removed), nil
}

// -----------------------------------------------------------------------------

// GetState returns the tracker state in its JSON shape
func (s *ControlService) GetState(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	data, err := json.Marshal(s.Tracker.Snapshot())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode state: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to decode state: %v", err)
	}

	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to build state: %v", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) FilterKnownAssets(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	matches := s.Catalog.Filter(req.GetValue())

	values := make([]interface{}, len(matches))
	for i, m := range matches {
		values[i] = m
	}
	return structpb.NewList(values)
}

// -----------------------------------------------------------------------------

func (s *ControlService) saveWatchlist() {
	if s.ConfigPath == "" || s.Config == nil {
		return
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.Config.Watchlist = s.Tracker.Snapshot().Symbols
	if err := s.Config.Save(s.ConfigPath); err != nil {
		s.Logger.Error("gRPC: Failed to save config: %v", err)
	}
}
