package main

import (
	"fmt"
	"net"

	"crypto-tracker/src/catalog"
	"crypto-tracker/src/config"
	"crypto-tracker/src/grpc_control"
	"crypto-tracker/src/interfaces"
	"crypto-tracker/src/logger"
	"crypto-tracker/src/server"

	"google.golang.org/grpc"
)

type runningServers struct {
	dashboard interfaces.IDataExchanger
	grpc      *grpc.Server
	errs      chan error
	logger    *logger.Logger
}

// -----------------------------------------------------------------------------

// startServers orchestrates the startup of all server components
func startServers(
	config *config.Config,
	configPath string,
	tracker interfaces.ITrackerController,
	known *catalog.Catalog,
	appLogger *logger.Logger,
) *runningServers {
	rs := &runningServers{
		errs:   make(chan error, 2),
		logger: appLogger,
	}

	// 1. Dashboard server (REST + WebSocket)
	dashboard := server.NewDashboardServer(config.MConfig, tracker, known, logger.NewLogger(config, "DashboardServer"))
	rs.dashboard = dashboard
	go func() {
		if err := dashboard.Start(); err != nil {
			rs.errs <- fmt.Errorf("dashboard: %w", err)
		}
	}()

	// 2. gRPC Control Server
	addr := fmt.Sprintf("%s:%d", config.GrpcHost, config.GrpcPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		rs.errs <- fmt.Errorf("grpc listen on %s: %w", addr, err)
		return rs
	}

	rs.grpc = grpc.NewServer()
	controlService := grpc_control.NewControlService(config, tracker, known, configPath, logger.NewLogger(config, "ControlService"))
	grpc_control.RegisterControlServer(rs.grpc, controlService)

	go func() {
		appLogger.Info("Starting gRPC Control Server on %s", addr)
		if err := rs.grpc.Serve(lis); err != nil {
			rs.errs <- fmt.Errorf("grpc: %w", err)
		}
	}()

	return rs
}

// -----------------------------------------------------------------------------

func (rs *runningServers) stop() {
	if rs.grpc != nil {
		rs.grpc.GracefulStop()
	}
	if err := rs.dashboard.Stop(); err != nil {
		rs.logger.Error("Dashboard shutdown: %v", err)
	}
	rs.logger.Info("Shutdown complete.")
}
