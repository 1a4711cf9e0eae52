package utils

import "golang.org/x/crypto/bcrypt"

// bcryptCost stays at the library default. Sign-in traffic here is teachers
// and staff, not students, so hashing throughput is not a bottleneck.
const bcryptCost = bcrypt.DefaultCost

// HashPassword hashes a plain password with bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPassword reports whether plain matches the stored bcrypt hash.
func CheckPassword(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
