package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword produces a salted bcrypt digest. Two calls on the same input
// yield different digests; only CheckPassword is meaningful on the output.
func HashPassword(pw string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(pw, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pw)) == nil
}
