package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"yoyaku/internal/config"
	"yoyaku/internal/database"
	"yoyaku/internal/logger"
	"yoyaku/internal/models"
	"yoyaku/internal/repository"
)

func strPtr(s string) *string { return &s }

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, "text")
	log := logger.Get()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	repos := repository.NewRepositories(db)
	ctx := context.Background()

	plans := []models.PricePlan{
		{
			Name: "small", MinPartySize: 1, MaxPartySize: 4, Amount: 1000, Currency: "JPY", IsActive: true,
			DescriptionEn: strPtr("Parties of 1-4 guests"),
			DescriptionJa: strPtr("1〜4名様"),
			DescriptionKo: strPtr("1~4인"),
		},
		{
			Name: "medium", MinPartySize: 5, MaxPartySize: 8, Amount: 2000, Currency: "JPY", IsActive: true,
			DescriptionEn: strPtr("Parties of 5-8 guests"),
			DescriptionJa: strPtr("5〜8名様"),
			DescriptionKo: strPtr("5~8인"),
		},
		{
			Name: "large", MinPartySize: 9, MaxPartySize: 12, Amount: 3000, Currency: "JPY", IsActive: true,
			DescriptionEn: strPtr("Parties of 9-12 guests"),
			DescriptionJa: strPtr("9〜12名様"),
			DescriptionKo: strPtr("9~12인"),
		},
	}

	for i := range plans {
		if err := repos.PricePlans.Create(ctx, &plans[i]); err != nil {
			log.Error("Failed to seed price plan", "name", plans[i].Name, "error", err)
			continue
		}
		log.Info("Seeded price plan", "name", plans[i].Name, "amount", plans[i].Amount)
	}

	restaurants := []models.Restaurant{
		{
			Name:          "Sakura Garden",
			NameJa:        strPtr("さくら庭園"),
			NameKo:        strPtr("사쿠라 가든"),
			Address:       strPtr("2-14-3 Dogenzaka, Shibuya, Tokyo"),
			Phone:         strPtr("+81-3-1234-5678"),
			Cuisine:       strPtr("kaiseki"),
			DescriptionEn: strPtr("Seasonal kaiseki dining in a quiet garden setting."),
			DescriptionJa: strPtr("静かな庭園で味わう季節の懐石料理。"),
			DescriptionKo: strPtr("조용한 정원에서 즐기는 계절 가이세키 요리."),
		},
		{
			Name:          "Han River Bistro",
			NameJa:        strPtr("漢江ビストロ"),
			NameKo:        strPtr("한강 비스트로"),
			Address:       strPtr("35 Yeouido-dong, Yeongdeungpo-gu, Seoul"),
			Phone:         strPtr("+82-2-987-6543"),
			Cuisine:       strPtr("korean"),
			DescriptionEn: strPtr("Modern Korean cooking with a view of the river."),
			DescriptionJa: strPtr("川を望むモダンな韓国料理。"),
			DescriptionKo: strPtr("강이 보이는 모던 한식."),
		},
		{
			Name:          "Tsukiji Uomasa",
			NameJa:        strPtr("築地魚政"),
			NameKo:        strPtr("쓰키지 우오마사"),
			Address:       strPtr("4-10-5 Tsukiji, Chuo, Tokyo"),
			Phone:         strPtr("+81-3-8765-4321"),
			Cuisine:       strPtr("sushi"),
			DescriptionEn: strPtr("Edomae sushi counter run by a third-generation chef."),
			DescriptionJa: strPtr("三代目が握る江戸前寿司。"),
			DescriptionKo: strPtr("3대째 이어온 에도마에 스시."),
		},
	}

	for i := range restaurants {
		if err := repos.Restaurants.Create(ctx, &restaurants[i]); err != nil {
			log.Error("Failed to seed restaurant", "name", restaurants[i].Name, "error", err)
			continue
		}
		log.Info("Seeded restaurant", "id", restaurants[i].ID, "name", restaurants[i].Name)
	}

	staffPassword := os.Getenv("SEED_STAFF_PASSWORD")
	if staffPassword == "" {
		staffPassword = "changeme"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(staffPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Fatal("Failed to hash staff password", "error", err)
	}

	staff := &models.User{
		Email:        "staff@yoyaku.example",
		PasswordHash: string(hash),
		DisplayName:  "Front Desk",
		Role:         "staff",
		IsActive:     true,
	}
	if err := repos.Users.Create(ctx, staff); err != nil {
		log.Error("Failed to seed staff user", "error", err)
	} else {
		log.Info("Seeded staff user", "email", staff.Email)
	}

	log.Info("Seed complete")
}
