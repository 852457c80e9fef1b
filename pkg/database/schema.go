package database

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var (
	moneyType   = map[string]string{"postgres": "numeric(20,2)"}
	percentType = map[string]string{"postgres": "numeric(5,2)"}
)

// Table names
const (
	TableUsers          = "users"
	TableOffers         = "offers"
	TableAffiliateLinks = "affiliate_links"
	TableClicks         = "clicks"
	TableConversions    = "conversions"
	TablePayouts        = "payouts"
	TablePasswordResets = "password_resets"
)

var (
	// UsersColumns holds the columns for the "users" table.
	UsersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "email", Type: field.TypeString, Unique: true, Size: 255},
		{Name: "password_hash", Type: field.TypeString, Size: 255},
		{Name: "role", Type: field.TypeEnum, Enums: []string{"company", "partner"}},
		{Name: "full_name", Type: field.TypeString, Size: 200, Default: ""},
		{Name: "company_name", Type: field.TypeString, Nullable: true, Size: 200},
		{Name: "phone", Type: field.TypeString, Nullable: true, Size: 50},
		{Name: "balance", Type: field.TypeFloat64, Default: 0.0, SchemaType: moneyType},
		{Name: "is_active", Type: field.TypeBool, Default: true},
		{Name: "created_at", Type: field.TypeTime},
	}
	// UsersTable holds the schema information for the "users" table.
	UsersTable = &schema.Table{
		Name:       TableUsers,
		Columns:    UsersColumns,
		PrimaryKey: []*schema.Column{UsersColumns[0]},
	}

	// OffersColumns holds the columns for the "offers" table.
	OffersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "title", Type: field.TypeString, Size: 200},
		{Name: "description", Type: field.TypeString, Nullable: true, Size: 2147483647},
		{Name: "product_url", Type: field.TypeString, Nullable: true, Size: 500},
		{Name: "image_url", Type: field.TypeString, Nullable: true, Size: 500},
		{Name: "price", Type: field.TypeFloat64, SchemaType: moneyType},
		{Name: "commission_percent", Type: field.TypeFloat64, SchemaType: percentType},
		{Name: "platform_percent", Type: field.TypeFloat64, Default: 20.0, SchemaType: percentType},
		{Name: "category", Type: field.TypeString, Nullable: true, Size: 100},
		{Name: "is_active", Type: field.TypeBool, Default: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
		{Name: "company_id", Type: field.TypeInt},
	}
	// OffersTable holds the schema information for the "offers" table.
	OffersTable = &schema.Table{
		Name:       TableOffers,
		Columns:    OffersColumns,
		PrimaryKey: []*schema.Column{OffersColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "offers_users_offers",
				Columns:    []*schema.Column{OffersColumns[12]},
				RefColumns: []*schema.Column{UsersColumns[0]},
				OnDelete:   schema.NoAction,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "offer_company_id",
				Unique:  false,
				Columns: []*schema.Column{OffersColumns[12]},
			},
			{
				Name:    "offer_is_active",
				Unique:  false,
				Columns: []*schema.Column{OffersColumns[9]},
			},
		},
	}

	// AffiliateLinksColumns holds the columns for the "affiliate_links" table.
	AffiliateLinksColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "tracking_code", Type: field.TypeString, Unique: true, Size: 50},
		{Name: "is_active", Type: field.TypeBool, Default: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "partner_id", Type: field.TypeInt},
		{Name: "offer_id", Type: field.TypeInt},
	}
	// AffiliateLinksTable holds the schema information for the "affiliate_links" table.
	AffiliateLinksTable = &schema.Table{
		Name:       TableAffiliateLinks,
		Columns:    AffiliateLinksColumns,
		PrimaryKey: []*schema.Column{AffiliateLinksColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "affiliate_links_users_links",
				Columns:    []*schema.Column{AffiliateLinksColumns[4]},
				RefColumns: []*schema.Column{UsersColumns[0]},
				OnDelete:   schema.NoAction,
			},
			{
				Symbol:     "affiliate_links_offers_links",
				Columns:    []*schema.Column{AffiliateLinksColumns[5]},
				RefColumns: []*schema.Column{OffersColumns[0]},
				OnDelete:   schema.NoAction,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "affiliatelink_partner_id_offer_id",
				Unique:  true,
				Columns: []*schema.Column{AffiliateLinksColumns[4], AffiliateLinksColumns[5]},
			},
		},
	}

	// ClicksColumns holds the columns for the "clicks" table.
	ClicksColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "ip_address", Type: field.TypeString, Nullable: true, Size: 50},
		{Name: "user_agent", Type: field.TypeString, Nullable: true, Size: 500},
		{Name: "referrer", Type: field.TypeString, Nullable: true, Size: 500},
		{Name: "utm_source", Type: field.TypeString, Nullable: true, Size: 100},
		{Name: "utm_medium", Type: field.TypeString, Nullable: true, Size: 100},
		{Name: "utm_campaign", Type: field.TypeString, Nullable: true, Size: 100},
		{Name: "clicked_at", Type: field.TypeTime},
		{Name: "affiliate_link_id", Type: field.TypeInt},
		{Name: "partner_id", Type: field.TypeInt},
		{Name: "offer_id", Type: field.TypeInt},
	}
	// ClicksTable holds the schema information for the "clicks" table.
	ClicksTable = &schema.Table{
		Name:       TableClicks,
		Columns:    ClicksColumns,
		PrimaryKey: []*schema.Column{ClicksColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "clicks_affiliate_links_clicks",
				Columns:    []*schema.Column{ClicksColumns[8]},
				RefColumns: []*schema.Column{AffiliateLinksColumns[0]},
				OnDelete:   schema.NoAction,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "click_partner_id",
				Unique:  false,
				Columns: []*schema.Column{ClicksColumns[9]},
			},
			{
				Name:    "click_offer_id",
				Unique:  false,
				Columns: []*schema.Column{ClicksColumns[10]},
			},
		},
	}

	// ConversionsColumns holds the columns for the "conversions" table.
	ConversionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "order_id", Type: field.TypeString, Unique: true, Nullable: true, Size: 100},
		{Name: "sale_amount", Type: field.TypeFloat64, SchemaType: moneyType},
		{Name: "total_commission", Type: field.TypeFloat64, SchemaType: moneyType},
		{Name: "commission_amount", Type: field.TypeFloat64, SchemaType: moneyType},
		{Name: "platform_fee", Type: field.TypeFloat64, SchemaType: moneyType},
		{Name: "status", Type: field.TypeEnum, Enums: []string{"pending", "approved", "rejected", "paid"}, Default: "pending"},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "approved_at", Type: field.TypeTime, Nullable: true},
		{Name: "paid_at", Type: field.TypeTime, Nullable: true},
		{Name: "affiliate_link_id", Type: field.TypeInt},
		{Name: "partner_id", Type: field.TypeInt},
		{Name: "offer_id", Type: field.TypeInt},
	}
	// ConversionsTable holds the schema information for the "conversions" table.
	ConversionsTable = &schema.Table{
		Name:       TableConversions,
		Columns:    ConversionsColumns,
		PrimaryKey: []*schema.Column{ConversionsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "conversions_affiliate_links_conversions",
				Columns:    []*schema.Column{ConversionsColumns[10]},
				RefColumns: []*schema.Column{AffiliateLinksColumns[0]},
				OnDelete:   schema.NoAction,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "conversion_partner_id",
				Unique:  false,
				Columns: []*schema.Column{ConversionsColumns[11]},
			},
			{
				Name:    "conversion_offer_id",
				Unique:  false,
				Columns: []*schema.Column{ConversionsColumns[12]},
			},
			{
				Name:    "conversion_status",
				Unique:  false,
				Columns: []*schema.Column{ConversionsColumns[6]},
			},
		},
	}

	// PayoutsColumns holds the columns for the "payouts" table.
	PayoutsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "amount", Type: field.TypeFloat64, SchemaType: moneyType},
		{Name: "payment_method", Type: field.TypeString, Nullable: true, Size: 50},
		{Name: "payment_details", Type: field.TypeString, Nullable: true, Size: 500},
		{Name: "status", Type: field.TypeEnum, Enums: []string{"pending", "processing", "completed", "failed"}, Default: "pending"},
		{Name: "failure_reason", Type: field.TypeString, Nullable: true, Size: 255},
		{Name: "requested_at", Type: field.TypeTime},
		{Name: "completed_at", Type: field.TypeTime, Nullable: true},
		{Name: "partner_id", Type: field.TypeInt},
	}
	// PayoutsTable holds the schema information for the "payouts" table.
	PayoutsTable = &schema.Table{
		Name:       TablePayouts,
		Columns:    PayoutsColumns,
		PrimaryKey: []*schema.Column{PayoutsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "payouts_users_payouts",
				Columns:    []*schema.Column{PayoutsColumns[8]},
				RefColumns: []*schema.Column{UsersColumns[0]},
				OnDelete:   schema.NoAction,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "payout_status_requested_at",
				Unique:  false,
				Columns: []*schema.Column{PayoutsColumns[4], PayoutsColumns[6]},
			},
		},
	}

	// PasswordResetsColumns holds the columns for the "password_resets" table.
	PasswordResetsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "token_hash", Type: field.TypeString, Unique: true, Size: 64},
		{Name: "expires_at", Type: field.TypeTime},
		{Name: "used", Type: field.TypeBool, Default: false},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "user_id", Type: field.TypeInt},
	}
	// PasswordResetsTable holds the schema information for the "password_resets" table.
	PasswordResetsTable = &schema.Table{
		Name:       TablePasswordResets,
		Columns:    PasswordResetsColumns,
		PrimaryKey: []*schema.Column{PasswordResetsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "password_resets_users_password_resets",
				Columns:    []*schema.Column{PasswordResetsColumns[5]},
				RefColumns: []*schema.Column{UsersColumns[0]},
				OnDelete:   schema.NoAction,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "passwordreset_user_id_used",
				Unique:  false,
				Columns: []*schema.Column{PasswordResetsColumns[5], PasswordResetsColumns[3]},
			},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		UsersTable,
		OffersTable,
		AffiliateLinksTable,
		ClicksTable,
		ConversionsTable,
		PayoutsTable,
		PasswordResetsTable,
	}
)

func init() {
	OffersTable.ForeignKeys[0].RefTable = UsersTable
	AffiliateLinksTable.ForeignKeys[0].RefTable = UsersTable
	AffiliateLinksTable.ForeignKeys[1].RefTable = OffersTable
	ClicksTable.ForeignKeys[0].RefTable = AffiliateLinksTable
	ConversionsTable.ForeignKeys[0].RefTable = AffiliateLinksTable
	PayoutsTable.ForeignKeys[0].RefTable = UsersTable
	PasswordResetsTable.ForeignKeys[0].RefTable = UsersTable
}
