package models

import (
	"time"

	"golang.org/x/oauth2"
)

// Submission represents one persisted contact-form entry. Submissions are
// append-only: they are never updated or deleted, and they stay persisted
// even when the mail relay for them fails.
type Submission struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Email     string    `json:"email" gorm:"type:varchar(255);not null"`
	Message   string    `json:"message" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for Submission
func (Submission) TableName() string {
	return "submissions"
}

// OAuthCredential stores the delegated Gmail credential set. At most one row
// exists at any time; re-authorizing replaces it wholesale.
type OAuthCredential struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	AccessToken  string    `json:"-" gorm:"type:text;not null"`
	RefreshToken string    `json:"-" gorm:"type:text"`
	Scope        string    `json:"scope" gorm:"type:varchar(255)"`
	TokenType    string    `json:"token_type" gorm:"type:varchar(50)"`
	ExpiryDate   int64     `json:"expiry_date"` // epoch millis
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for OAuthCredential
func (OAuthCredential) TableName() string {
	return "oauth_credentials"
}

// Token converts the stored credential set into an oauth2 token.
func (c *OAuthCredential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       time.UnixMilli(c.ExpiryDate),
	}
}

// CredentialFromToken converts an exchanged oauth2 token into a storable
// credential set.
func CredentialFromToken(t *oauth2.Token) *OAuthCredential {
	scope, _ := t.Extra("scope").(string)
	return &OAuthCredential{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Scope:        scope,
		TokenType:    t.TokenType,
		ExpiryDate:   t.Expiry.UnixMilli(),
	}
}
