// Command admin creates an administrator account directly in the database,
// for recovering a portal whose admins are all gone or for seeding one before
// first launch.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"careerbridge/internal/auth"
	"careerbridge/internal/config"
	"careerbridge/internal/database"
)

func main() {
	var (
		username = flag.String("username", "", "admin username (required)")
		email    = flag.String("email", "", "admin email (required)")
		userType = flag.String("type", "recruiter", "account type: student or recruiter")
		dbHost   = flag.String("db-host", "", "database host (defaults to DATABASE_HOST)")
		dbPort   = flag.Int("db-port", 0, "database port (defaults to DATABASE_PORT)")
		dbName   = flag.String("db-name", "", "database name (defaults to POSTGRES_DB)")
		dbUser   = flag.String("db-user", "", "database user (defaults to POSTGRES_USER)")
		dbPass   = flag.String("db-password", "", "database password (defaults to POSTGRES_PASSWORD)")
		sslMode  = flag.String("db-sslmode", "", "database sslmode (defaults to DATABASE_SSLMODE)")
	)
	flag.Parse()

	u := strings.TrimSpace(*username)
	e := strings.ToLower(strings.TrimSpace(*email))
	if u == "" {
		log.Fatal("missing required flag: --username")
	}
	if e == "" {
		log.Fatal("missing required flag: --email")
	}
	if *userType != database.ActorStudent && *userType != database.ActorRecruiter {
		log.Fatal("--type must be student or recruiter")
	}

	dbCfg, err := loadDatabaseConfig(*dbHost, *dbPort, *dbName, *dbUser, *dbPass, *sslMode)
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	if err := ensureFree(db, u, e); err != nil {
		log.Fatal(err)
	}

	password, err := generateRandomPassword(24)
	if err != nil {
		log.Fatalf("generate password: %v", err)
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	if *userType == database.ActorStudent {
		student := database.Student{
			Username:     u,
			Email:        e,
			PasswordHash: hashed,
			IsAdmin:      true,
		}
		if err := db.Create(&student).Error; err != nil {
			log.Fatalf("create student: %v", err)
		}
	} else {
		recruiter := database.Recruiter{
			Username:     u,
			Email:        e,
			PasswordHash: hashed,
			CompanyName:  "Portal Administration",
			IsAdmin:      true,
		}
		if err := db.Create(&recruiter).Error; err != nil {
			log.Fatalf("create recruiter: %v", err)
		}
	}

	fmt.Printf("Created administrator account:\n")
	fmt.Printf("  type:     %s\n", *userType)
	fmt.Printf("  username: %s\n", u)
	fmt.Printf("  email:    %s\n", e)
	fmt.Printf("  password: %s\n", password)
	fmt.Printf("Log in and change the password now; it is shown only once.\n")
}

func ensureFree(db *gorm.DB, username, email string) error {
	var student database.Student
	switch err := db.Where("username = ? OR email = ?", username, email).First(&student).Error; {
	case err == nil:
		return fmt.Errorf("student account %q already exists", student.Username)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return fmt.Errorf("query students: %w", err)
	}

	var recruiter database.Recruiter
	switch err := db.Where("username = ? OR email = ?", username, email).First(&recruiter).Error; {
	case err == nil:
		return fmt.Errorf("recruiter account %q already exists", recruiter.Username)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return fmt.Errorf("query recruiters: %w", err)
	}
}

func loadDatabaseConfig(host string, port int, name, user, password, sslmode string) (config.DatabaseConfig, error) {
	if strings.TrimSpace(host) == "" {
		host = os.Getenv("DATABASE_HOST")
	}
	if port <= 0 {
		if env := strings.TrimSpace(os.Getenv("DATABASE_PORT")); env != "" {
			p, err := strconv.Atoi(env)
			if err != nil {
				return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
			}
			port = p
		}
	}
	if strings.TrimSpace(name) == "" {
		name = os.Getenv("POSTGRES_DB")
	}
	if strings.TrimSpace(user) == "" {
		user = os.Getenv("POSTGRES_USER")
	}
	if strings.TrimSpace(password) == "" {
		password = os.Getenv("POSTGRES_PASSWORD")
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = os.Getenv("DATABASE_SSLMODE")
	}

	if strings.TrimSpace(host) == "" {
		host = "localhost"
	}
	if port <= 0 {
		port = 5432
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = "disable"
	}
	if strings.TrimSpace(name) == "" {
		return config.DatabaseConfig{}, errors.New("database name is required (POSTGRES_DB)")
	}
	if strings.TrimSpace(user) == "" {
		return config.DatabaseConfig{}, errors.New("database user is required (POSTGRES_USER)")
	}
	if strings.TrimSpace(password) == "" {
		return config.DatabaseConfig{}, errors.New("database password is required (POSTGRES_PASSWORD)")
	}

	return config.DatabaseConfig{
		Host:     host,
		Port:     port,
		Name:     name,
		User:     user,
		Password: password,
		SSLMode:  sslmode,
	}, nil
}

func generateRandomPassword(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		bytesLen = 24
	}
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
