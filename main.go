package main

import (
	"context"
	"strings"
	"time"

	"github.com/cppla/socialnet/config"
	"github.com/cppla/socialnet/routes"
	"github.com/cppla/socialnet/services"
	"github.com/cppla/socialnet/storage"
	"github.com/cppla/socialnet/store"
	"github.com/cppla/socialnet/store/mongostore"
	"github.com/cppla/socialnet/store/sqlstore"
	"github.com/cppla/socialnet/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	st, err := openStore(cfg)
	if err != nil {
		utils.Sugar.Fatalf("open %s store: %v", cfg.StoreDriver, err)
	}

	bucket, err := storage.NewLocal(cfg.UploadDir, cfg.PublicBaseURL+"/static/uploads")
	if err != nil {
		utils.Sugar.Fatalf("open upload bucket: %v", err)
	}

	svc := services.New(st, bucket, cfg.UploadMaxBytes)
	r := routes.SetupRouter(svc)

	utils.Sugar.Infof("Starting server on port %s with %s store (graceful)", cfg.AppPort, cfg.StoreDriver)
	err = utils.GraceServer(":"+cfg.AppPort, r, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := st.Close(ctx); err != nil {
			utils.Sugar.Warnf("close store: %v", err)
		}
		utils.CloseRedis()
	})
	if err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

func openStore(cfg config.AppConfig) (store.Store, error) {
	if strings.EqualFold(cfg.StoreDriver, "mongo") {
		client, err := config.ConnectMongo(cfg)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.MongoTimeoutSec)*time.Second)
		defer cancel()
		return mongostore.New(ctx, client, cfg.MongoDB, mongostore.Options{DisableTransactions: cfg.MongoDisableTransactions})
	}
	db, err := config.OpenSQL(cfg)
	if err != nil {
		return nil, err
	}
	return sqlstore.New(db)
}
