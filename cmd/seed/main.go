package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jordanlanch/affiliatebridge/config"
	"github.com/jordanlanch/affiliatebridge/pkg/database"
	"github.com/jordanlanch/affiliatebridge/pkg/testdata"
)

func main() {
	fakePartners := flag.Int("fake-partners", 0, "Number of additional random partner accounts to create")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed for generated data (same seed, same names)")
	flag.Parse()

	cfg := config.Load()

	poolCfg := database.DefaultPoolConfig()
	if cfg.DatabaseDriver == "sqlite3" {
		poolCfg = database.SQLitePoolConfig()
	}
	sslCfg := &database.SSLConfig{
		Mode:         cfg.DBSSLMode,
		CertPath:     cfg.DBSSLCertPath,
		KeyPath:      cfg.DBSSLKeyPath,
		RootCertPath: cfg.DBSSLRootCertPath,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.NewClient(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, poolCfg, sslCfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	gen := testdata.NewGenerator(db, *seed)

	fmt.Println("🌱 Seeding demo data...")
	demo, err := gen.SeedDemo(ctx)
	if err != nil {
		log.Fatalf("❌ Failed to seed demo data: %v", err)
	}
	if demo == nil {
		fmt.Println("ℹ️  Accounts already exist (skipping demo data)")
	} else {
		fmt.Printf("✅ Company: %s\n", demo.Company.Email)
		fmt.Printf("✅ Partner: %s\n", demo.Partner.Email)
		fmt.Printf("✅ Offers:  %d\n", len(demo.Offers))
	}

	created := 0
	for i := 0; i < *fakePartners; i++ {
		partner, err := gen.Partner(ctx)
		if err != nil {
			log.Printf("⚠️  Failed to create partner %d: %v", i+1, err)
			continue
		}
		created++
		fmt.Printf("  + %s (%s)\n", partner.Email, partner.FullName)
	}

	fmt.Println("\n" + strings.Repeat("=", 40))
	if demo != nil {
		fmt.Printf("Demo password: %s\n", testdata.Password)
	}
	if *fakePartners > 0 {
		fmt.Printf("Random partners: %d/%d (password: %s)\n", created, *fakePartners, testdata.Password)
	}
	fmt.Println(strings.Repeat("=", 40))
	fmt.Println("✅ Seeding completed successfully!")
}
