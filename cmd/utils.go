package cmd

import (
	"flag"
	"log"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/jrhlh/nonye/internal/database"
)

func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	err := godotenv.Load(configPath)
	if err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

// EnsureAdminUser creates the bootstrap admin account on first start so the
// dashboard is reachable before any registration has happened.
func EnsureAdminUser(db *gorm.DB, username, password string) {
	if username == "" || password == "" {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}

	var user database.User
	err = db.Where(database.User{Username: username}).Attrs(database.User{
		Password:        string(hash),
		PermissionLevel: database.PermissionAdmin,
		Status:          database.UserActive,
	}).FirstOrCreate(&user).Error
	if err != nil {
		log.Fatalf("Failed to create admin user record: %v", err)
	}
}
