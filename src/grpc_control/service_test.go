package grpc_control

import (
	"context"
	"io"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"crypto-tracker/src/catalog"
	"crypto-tracker/src/config"
	"crypto-tracker/src/logger"
	"crypto-tracker/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type stubTracker struct {
	mu    sync.Mutex
	order []string
}

func (s *stubTracker) AddAsset(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.order {
		if o == symbol {
			return false
		}
	}
	s.order = append(s.order, symbol)
	return true
}

func (s *stubTracker) RemoveAsset(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.order {
		if o == symbol {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return true
		}
	}
	return false
}

func (s *stubTracker) Variance(string) float64 { return 0 }
func (s *stubTracker) Asset(string) (models.MAssetView, bool) { return models.MAssetView{}, false }
func (s *stubTracker) Changes() <-chan struct{} { return nil }

func (s *stubTracker) Snapshot() *models.MTrackerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := &models.MTrackerState{
		Type:    "UPDATE",
		Symbols: append([]string{}, s.order...),
		Assets:  make(map[string]models.MAssetView),
	}
	for _, o := range s.order {
		state.Assets[o] = models.MAssetView{Symbol: o, Loading: true}
	}
	return state
}

// -----------------------------------------------------------------------------

func startControl(t *testing.T, cfgPath string) (*ControlClient, *stubTracker, *config.Config) {
	t.Helper()

	cfg := config.Default()
	tr := &stubTracker{}
	svc := NewControlService(cfg, tr, catalog.New(cfg.KnownAssets), cfgPath, logger.NewLoggerWithWriter(nil, "ControlTest", io.Discard))

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterControlServer(srv, svc)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("Failed to dial bufnet: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return NewControlClient(conn), tr, cfg
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestAddAndRemoveAsset(t *testing.T) {
	client, tr, _ := startControl(t, "")
	ctx := testContext(t)

	res, err := client.AddAsset(ctx, wrapperspb.String(" btc "))
	if err != nil {
		t.Fatalf("AddAsset failed: %v", err)
	}
	if !res.GetValue() {
		t.Errorf("Expected BTC to be added")
	}

	res, _ = client.AddAsset(ctx, wrapperspb.String("BTC"))
	if res.GetValue() {
		t.Errorf("Expected second add to report false")
	}
	if len(tr.order) != 1 || tr.order[0] != "BTC" {
		t.Errorf("Expected tracker [BTC], got %v", tr.order)
	}

	res, err = client.RemoveAsset(ctx, wrapperspb.String("btc"))
	if err != nil || !res.GetValue() {
		t.Errorf("Expected BTC to be removed, got %v, %v", res, err)
	}
}

func TestEmptySymbolIsInvalidArgument(t *testing.T) {
	client, _, _ := startControl(t, "")
	ctx := testContext(t)

	_, err := client.AddAsset(ctx, wrapperspb.String("  "))
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("Expected InvalidArgument, got %v", err)
	}
	_, err = client.RemoveAsset(ctx, &wrapperspb.StringValue{})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("Expected InvalidArgument, got %v", err)
	}
}

func TestGetState(t *testing.T) {
	client, tr, _ := startControl(t, "")
	ctx := testContext(t)
	tr.AddAsset("ETH")

	state, err := client.GetState(ctx, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}

	symbols := state.GetFields()["symbols"].GetListValue().GetValues()
	if len(symbols) != 1 || symbols[0].GetStringValue() != "ETH" {
		t.Errorf("Expected symbols [ETH], got %v", symbols)
	}
	eth := state.GetFields()["assets"].GetStructValue().GetFields()["ETH"].GetStructValue()
	if !eth.GetFields()["loading"].GetBoolValue() {
		t.Errorf("Expected ETH to be loading, got %v", eth)
	}
}

func TestFilterKnownAssets(t *testing.T) {
	client, _, _ := startControl(t, "")

	list, err := client.FilterKnownAssets(testContext(t), wrapperspb.String("tc"))
	if err != nil {
		t.Fatalf("FilterKnownAssets failed: %v", err)
	}

	var got []string
	for _, v := range list.GetValues() {
		got = append(got, v.GetStringValue())
	}
	if strings.Join(got, ",") != "BTC,LTC" {
		t.Errorf("Expected [BTC LTC], got %v", got)
	}
}

func TestWatchlistSavedToConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	client, _, _ := startControl(t, path)
	ctx := testContext(t)

	client.AddAsset(ctx, wrapperspb.String("sol"))
	client.AddAsset(ctx, wrapperspb.String("ada"))
	client.RemoveAsset(ctx, wrapperspb.String("sol"))

	saved, err := config.NewConfig(path)
	if err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}
	if strings.Join(saved.Watchlist, ",") != "ADA" {
		t.Errorf("Expected saved watchlist [ADA], got %v", saved.Watchlist)
	}
}
