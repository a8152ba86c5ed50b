package models

import (
	"time"

	"gorm.io/gorm"
)

// NoOwner is the owner id of a globally visible tag association. Storing a
// concrete zero instead of NULL keeps (tag_id, item_id, owner_id) unique
// for global tags too, since NULLs never collide in a unique index.
const NoOwner uint = 0

// Account is a login identity. Every account has exactly one Merchant.
type Account struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:150;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Token        string    `json:"-" gorm:"size:36;uniqueIndex;not null"`
	IsStaff      bool      `json:"is_staff" gorm:"default:false"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Merchant is the actor owning favorites, private tags and flips.
type Merchant struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	AccountID uint       `json:"account_id" gorm:"uniqueIndex;not null"`
	Account   Account    `json:"-" gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
	Favorites []Favorite `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Flips     []Flip     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `json:"created_at"`
}

// BeforeDelete removes the merchant's private tag associations. OwnerID
// carries the NoOwner sentinel, so it cannot reference merchants and has
// no cascading foreign key.
func (m *Merchant) BeforeDelete(tx *gorm.DB) error {
	if m.ID == 0 {
		return nil
	}
	return tx.Where("owner_id = ?", m.ID).Delete(&ItemTag{}).Error
}

// Item is a tradable item. The id comes from the external catalog and is
// never generated locally.
type Item struct {
	ID          int64  `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name        string `json:"name" gorm:"size:255;index;not null"`
	Description string `json:"description" gorm:"type:text"`
	Members     bool   `json:"members" gorm:"index;default:false"`
	StorePrice  *int64 `json:"store_price"`
	BuyLimit    *int64 `json:"buy_limit"`
	HighAlch    *int64 `json:"high_alch"`
	LowAlch     *int64 `json:"low_alch"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	Prices    []Price    `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	ItemTags  []ItemTag  `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Favorites []Favorite `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Flips     []Flip     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// Price is one append-only observation for an item.
type Price struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	ItemID       int64     `json:"item_id" gorm:"not null;index:idx_price_item_ts,priority:1"`
	MerchantID   *uint     `json:"merchant_id,omitempty" gorm:"index"`
	BuyPrice     *int64    `json:"buy_price"`
	SellPrice    *int64    `json:"sell_price"`
	AveragePrice *int64    `json:"average_price"`
	BuyVolume    *int64    `json:"buy_volume"`
	SellVolume   *int64    `json:"sell_volume"`
	Timestamp    time.Time `json:"timestamp" gorm:"not null;index:idx_price_item_ts,priority:2"`
}

// BeforeCreate stores timestamps in UTC so MAX(timestamp) compares equal
// values across drivers that persist time as text.
func (p *Price) BeforeCreate(tx *gorm.DB) error {
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now()
	}
	p.Timestamp = p.Timestamp.UTC()
	return nil
}

// Tag is a unique, normalized (lower-case) label.
type Tag struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:100;uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemTag attaches a Tag to an Item, globally (OwnerID == NoOwner) or
// privately for one merchant.
type ItemTag struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TagID     uint      `json:"tag_id" gorm:"not null;uniqueIndex:idx_item_tag_owner,priority:1"`
	Tag       Tag       `json:"-" gorm:"foreignKey:TagID;constraint:OnDelete:CASCADE"`
	ItemID    int64     `json:"item_id" gorm:"not null;uniqueIndex:idx_item_tag_owner,priority:2;index"`
	OwnerID   uint      `json:"owner_id" gorm:"not null;default:0;uniqueIndex:idx_item_tag_owner,priority:3"`
	CreatedAt time.Time `json:"created_at"`
}

// Favorite marks an item for a merchant, at most once per pair.
type Favorite struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	MerchantID uint      `json:"merchant_id" gorm:"not null;uniqueIndex:idx_favorite_merchant_item,priority:1"`
	ItemID     int64     `json:"item_id" gorm:"not null;uniqueIndex:idx_favorite_merchant_item,priority:2;index"`
	CreatedAt  time.Time `json:"created_at"`
}

// Flip is a buy/sell cycle. Its lifecycle state is derived from which of
// the dates and prices are set; there is no status column.
type Flip struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	MerchantID uint       `json:"merchant_id" gorm:"not null;index"`
	ItemID     int64      `json:"item_id" gorm:"not null;index"`
	Quantity   int64      `json:"quantity" gorm:"not null"`
	BuyPrice   *int64     `json:"buy_price"`
	SellPrice  *int64     `json:"sell_price"`
	OrderDate  time.Time  `json:"order_date" gorm:"not null"`
	BuyDate    *time.Time `json:"buy_date"`
	ListedDate *time.Time `json:"listed_date"`
	SellDate   *time.Time `json:"sell_date"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// All lists every model for AutoMigrate, parents first.
func All() []interface{} {
	return []interface{}{
		&Account{},
		&Merchant{},
		&Item{},
		&Price{},
		&Tag{},
		&ItemTag{},
		&Favorite{},
		&Flip{},
	}
}
