// Аварийное закрытие: снимает все позиции по символу на обеих биржах.
// Запускается руками, когда бот умер с открытой парой.
package main

import (
	"context"
	"fmt"
	"time"

	"dn_farming/internal/executor"
	"dn_farming/internal/modules/arbitrum/service"
	"dn_farming/internal/modules/config"
	extservice "dn_farming/internal/modules/extended_client/service"
	litservice "dn_farming/internal/modules/lighter_client/service"
	"dn_farming/pkg/logger"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

func main() {
	logger.SetServiceName("closeall")

	viper.SetDefault("symbol", "")
	viper.SetDefault("timeout", "2m")
	viper.AutomaticEnv()

	cfg, err := config.NewConfig()
	if err != nil {
		panic(errors.Wrap(err, "load config"))
	}

	symbol := viper.GetString("symbol")
	if symbol == "" {
		symbol = cfg.Symbol
	}
	timeout := viper.GetDuration("timeout")

	chain, err := service.NewClient(cfg)
	if err != nil {
		panic(errors.Wrap(err, "arbitrum client"))
	}
	extended := extservice.NewClient(cfg, chain)
	lighter := litservice.NewClient(cfg, chain)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	exec := executor.New(extended, lighter, cfg.SizeTolerancePct)
	if err := exec.Close(ctx, symbol); err != nil {
		panic(errors.Wrapf(err, "close %s", symbol))
	}

	// контрольное чтение: убеждаемся что позиций больше нет
	time.Sleep(2 * time.Second)
	report(ctx, symbol, extended.Name(), func() (float64, error) {
		pos, err := extended.GetPosition(ctx, symbol)
		if err != nil || pos == nil {
			return 0, err
		}
		return pos.Size, nil
	})
	report(ctx, symbol, lighter.Name(), func() (float64, error) {
		pos, err := lighter.GetPosition(ctx, symbol)
		if err != nil || pos == nil {
			return 0, err
		}
		return pos.Size, nil
	})
}

func report(_ context.Context, symbol, venue string, size func() (float64, error)) {
	s, err := size()
	switch {
	case err != nil:
		fmt.Printf("%s: проверка позиции не удалась: %v\n", venue, err)
	case s > 0:
		fmt.Printf("⚠️ %s: позиция %s всё ещё открыта, size=%.6f\n", venue, symbol, s)
	default:
		fmt.Printf("✅ %s: позиций по %s нет\n", venue, symbol)
	}
}
