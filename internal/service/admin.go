package service

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials - неверный логин или пароль администратора.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AdminID - идентификатор единственного администратора в токене.
const AdminID int64 = 1

// AdminService проверяет учётные данные администратора.
type AdminService struct {
	username     string
	passwordHash []byte
}

// NewAdminService принимает bcrypt-хеш пароля.
func NewAdminService(username, passwordHash string) *AdminService {
	return &AdminService{username: username, passwordHash: []byte(passwordHash)}
}

// NewAdminServiceFromPassword хеширует открытый пароль при старте.
func NewAdminServiceFromPassword(username, password string) (*AdminService, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	return NewAdminService(username, string(hash)), nil
}

// Login возвращает AdminID при верных учётных данных.
func (s *AdminService) Login(username, password string) (int64, error) {
	if s.username == "" || len(s.passwordHash) == 0 {
		return 0, ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		return 0, ErrInvalidCredentials
	}
	return AdminID, nil
}
