package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrEmptyPassword = errors.New("empty password")

// MaxCost 是房间密码允许的最高 bcrypt cost。
const MaxCost = bcrypt.DefaultCost

// prehash 先做 SHA-256，任意长度的密码都落在 bcrypt 的 72 字节上限以内，且不会被截断。
func prehash(pw string) []byte {
	sum := sha256.Sum256([]byte(pw))
	out := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(out, sum[:])
	return out
}

// HashPassword 对房间密码做 bcrypt 哈希，内存里不保留明文。
// cost 越界时回落到 bcrypt.MinCost。
func HashPassword(pw string, cost int) (string, error) {
	if pw == "" {
		return "", ErrEmptyPassword
	}
	if cost < bcrypt.MinCost || cost > MaxCost {
		cost = bcrypt.MinCost
	}
	b, err := bcrypt.GenerateFromPassword(prehash(pw), cost)
	return string(b), err
}

func VerifyPassword(hash, pw string) bool {
	if hash == "" || pw == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), prehash(pw)) == nil
}

// Fingerprint 用进程内随机密钥对密码做 HMAC-SHA256，作为按密码查找房间的索引键。
// 相同密码得到相同指纹；密钥不落盘，重启后指纹全部失效，房间本身也随进程消失。
type Fingerprint struct {
	key []byte
}

func NewFingerprint() *Fingerprint {
	key := make([]byte, 32)
	rand.Read(key)
	return &Fingerprint{key: key}
}

func (f *Fingerprint) Sum(pw string) string {
	m := hmac.New(sha256.New, f.key)
	m.Write([]byte(pw))
	return hex.EncodeToString(m.Sum(nil))
}
