package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// 车间平板上用数字 PIN 登录,长度下限防止单位数 PIN
const minPINLength = 4

// HashPIN 哈希操作员 PIN(使用 bcrypt)
func HashPIN(pin string) (string, error) {
	if len(pin) < minPINLength {
		return "", errors.New("pin too short")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash pin: %w", err)
	}
	return string(hashedBytes), nil
}

// VerifyPIN 验证操作员 PIN
func VerifyPIN(pin string, hashedPIN string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPIN), []byte(pin))
	return err == nil
}
