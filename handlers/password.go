package handlers

import "golang.org/x/crypto/bcrypt"

// Passwords and security answers share the same one-way hashing; plaintext is
// never persisted.

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
