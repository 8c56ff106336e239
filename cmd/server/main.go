package main

import (
	"log"
	"net/http"
	"time"

	"panaderia-be/internal/address"
	"panaderia-be/internal/api"
	"panaderia-be/internal/catalog"
	"panaderia-be/internal/config"
	"panaderia-be/internal/db"
	"panaderia-be/internal/logger"
	"panaderia-be/internal/metrics"
	"panaderia-be/internal/notify"
	"panaderia-be/internal/order"
	"panaderia-be/internal/preorder"
)

func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := db.InitDB(cfg)
	defer database.Close()

	engine := &metrics.Engine{}

	var gateway notify.Gateway
	if cfg.SMTPHost != "" {
		gateway = notify.NewEmailGateway(cfg)
	} else {
		gateway = &notify.NopGateway{Log: logger.L()}
	}

	catalogRepo := catalog.NewRepository(database)
	addressRepo := address.NewRepository(database)

	orderRepo := order.NewRepository(database)
	orderSvc := order.NewService(
		orderRepo, addressRepo, catalogRepo, gateway,
		order.Config{WindowDays: cfg.OrderWindowDays},
		engine,
	)

	preRepo := preorder.NewRepository(database)
	preSvc := preorder.NewService(
		preRepo, catalogRepo, gateway,
		preorder.ApprovalPolicy{
			CountLimit:  cfg.ApprovalLimitCount,
			WeightLimit: cfg.ApprovalLimitWeight,
		},
		preorder.NewPINIssuer(cfg.PINLength, time.Duration(cfg.PINTTLMinutes)*time.Minute),
		preorder.Config{WindowDays: cfg.OrderWindowDays},
		engine,
	)

	router := api.NewRouter(
		[]byte(cfg.SecretKey),
		api.NewPreOrderHandler(preSvc),
		api.NewOrderHandler(orderSvc),
	)

	log.Printf("🥖 Order engine listening at http://localhost:%s/", cfg.AppPort)
	log.Fatal(http.ListenAndServe(":"+cfg.AppPort, router))
}
