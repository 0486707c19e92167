package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CivilServant is a guard profile that receives tips through its QR guard token.
type CivilServant struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName    string             `bson:"fullname" json:"fullname"`
	PhoneNumber string             `bson:"phone_number" json:"phoneNumber"`
	GuardToken  string             `bson:"guard_token" json:"guardToken"`
	WalletID    string             `bson:"wallet_id,omitempty" json:"walletId,omitempty"`
	CustomerID  string             `bson:"customer_id,omitempty" json:"customerId,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
