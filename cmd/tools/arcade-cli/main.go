package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/annel0/arcade-hub/internal/client"
)

const defaultServerAddr = "http://localhost:4000"

func main() {
	var (
		serverAddr  = flag.String("server", defaultServerAddr, "Arcade Hub server address")
		command     = flag.String("cmd", "top", "Command: register, login, submit, top, profile")
		username    = flag.String("user", "", "Username (default: from profile)")
		password    = flag.String("pass", "", "Password for register/login")
		game        = flag.String("game", "", "Game identifier")
		score       = flag.Float64("score", 0, "Score for submit")
		profilePath = flag.String("profile", defaultProfilePath(), "Path to local profile file")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	profile, err := client.LoadProfile(*profilePath)
	if err != nil {
		log.Fatalf("❌ Не удалось прочитать профиль: %v", err)
	}
	if *username != "" {
		if err := profile.SetUsername(*username); err != nil {
			log.Fatalf("❌ Не удалось сохранить профиль: %v", err)
		}
	}

	api := client.NewAPIClient(*serverAddr)

	switch *command {
	case "register":
		requirePassword(*password)
		if err := api.Register(ctx, profile.Username(), *password); err != nil {
			log.Fatalf("❌ Регистрация не удалась: %v", err)
		}
		fmt.Printf("✅ Аккаунт %s зарегистрирован\n", profile.Username())

	case "login":
		requirePassword(*password)
		if err := api.Login(ctx, profile.Username(), *password); err != nil {
			log.Fatalf("❌ Вход не удался: %v", err)
		}
		fmt.Printf("✅ Вход выполнен: %s\n", profile.Username())

	case "submit":
		if *game == "" {
			log.Fatalf("❌ Укажите игру: -game <id>")
		}
		session := client.NewGameSession(api, profile, *game)
		submitted, err := session.TrySubmit(ctx, *score)
		if err != nil {
			session.Reconcile()
			log.Fatalf("❌ Результат не доставлен: %v", err)
		}
		if submitted {
			fmt.Printf("🏆 Результат %.0f отправлен (%s)\n", *score, *game)
		} else {
			fmt.Printf("ℹ️  Результат %.0f не превышает локальный рекорд, пропущен\n", *score)
		}

	case "top":
		entries, err := api.Leaderboard(ctx, *game)
		if err != nil {
			log.Fatalf("❌ Не удалось получить таблицу рекордов: %v", err)
		}
		if len(entries) == 0 {
			fmt.Println("Таблица рекордов пуста")
			return
		}
		for i, e := range entries {
			fmt.Printf("%2d. %-20s %-12s %s\n", i+1, e.Username, e.Game, formatScore(e.Score))
		}

	case "profile":
		fmt.Printf("Игрок: %s\n", profile.Username())
		fmt.Printf("Файл профиля: %s\n", *profilePath)

	default:
		fmt.Fprintf(os.Stderr, "Неизвестная команда: %s\n", *command)
		flag.Usage()
		os.Exit(1)
	}
}

func requirePassword(password string) {
	if password == "" {
		log.Fatalf("❌ Укажите пароль: -pass <password>")
	}
}

func defaultProfilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "arcade-profile.json"
	}
	return filepath.Join(home, ".arcade-hub", "profile.json")
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
