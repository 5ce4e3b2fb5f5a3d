package utils

import "golang.org/x/crypto/bcrypt"

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DummyHash returns a hash of a random-looking password at cost. Comparing
// against it when no user exists makes an unknown email cost as much as a
// wrong password, provided cost matches the one real hashes use.
func DummyHash(cost int) string {
	h, err := HashPassword("not-a-real-password", cost)
	if err != nil {
		h, _ = HashPassword("not-a-real-password", bcrypt.DefaultCost)
	}
	return h
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
