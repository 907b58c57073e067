package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get DB: %v", err)
	}

	sql := `
	CREATE TABLE IF NOT EXISTS brands (
	  id CHAR(36) NOT NULL,
	  name VARCHAR(255) NOT NULL,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS products (
	  id CHAR(36) NOT NULL,
	  brand_id CHAR(36) NOT NULL,
	  name VARCHAR(255) NOT NULL,
	  price_cents BIGINT NOT NULL,
	  sale_price_cents BIGINT NULL,
	  currency CHAR(3) NOT NULL DEFAULT 'USD',
	  stock INT NOT NULL DEFAULT 0,
	  active TINYINT(1) NOT NULL DEFAULT 1,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  KEY ix_products_brand_id (brand_id),
	  CONSTRAINT fk_products_brand FOREIGN KEY (brand_id) REFERENCES brands(id) ON DELETE RESTRICT,
	  CONSTRAINT ck_products_stock CHECK (stock >= 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS product_variants (
	  id CHAR(36) NOT NULL,
	  product_id CHAR(36) NOT NULL,
	  sku VARCHAR(64) NOT NULL,
	  size VARCHAR(32) NOT NULL DEFAULT '',
	  color VARCHAR(32) NOT NULL DEFAULT '',
	  price_adj_cents BIGINT NOT NULL DEFAULT 0,
	  stock INT NOT NULL DEFAULT 0,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  KEY ix_product_variants_product_id (product_id),
	  CONSTRAINT fk_product_variants_product FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE,
	  CONSTRAINT ck_product_variants_stock CHECK (stock >= 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS promo_codes (
	  code VARCHAR(64) NOT NULL,
	  kind ENUM('percentage','fixed') NOT NULL,
	  value BIGINT NOT NULL,
	  max_discount_cents BIGINT NULL,
	  min_order_cents BIGINT NOT NULL DEFAULT 0,
	  usage_limit INT NULL,
	  used_count INT NOT NULL DEFAULT 0,
	  expires_at DATETIME(3) NOT NULL,
	  active TINYINT(1) NOT NULL DEFAULT 1,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (code),
	  CONSTRAINT ck_promo_codes_used CHECK (used_count >= 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS orders (
	  id CHAR(36) NOT NULL,
	  user_id CHAR(36) NOT NULL,
	  brand_id CHAR(36) NOT NULL,
	  status ENUM('pending','confirmed','processing','shipped','delivered','cancelled','refunded') NOT NULL DEFAULT 'pending',
	  checkout_state ENUM('items_pending','stock_pending','allocated','complete') NOT NULL DEFAULT 'items_pending',
	  subtotal_cents BIGINT NOT NULL,
	  shipping_cents BIGINT NOT NULL DEFAULT 0,
	  discount_cents BIGINT NOT NULL DEFAULT 0,
	  total_cents BIGINT NOT NULL,
	  currency CHAR(3) NOT NULL DEFAULT 'USD',
	  ship_name VARCHAR(100) NOT NULL,
	  ship_phone VARCHAR(32) NOT NULL,
	  ship_street VARCHAR(255) NOT NULL,
	  ship_city VARCHAR(100) NOT NULL,
	  ship_state VARCHAR(100) NOT NULL DEFAULT '',
	  ship_postal_code VARCHAR(32) NOT NULL,
	  ship_country CHAR(2) NOT NULL,
	  promo_code VARCHAR(64) NULL,
	  note TEXT NULL,
	  idempotency_key VARCHAR(64) NULL,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  delivered_at DATETIME(3) NULL,
	  PRIMARY KEY (id),
	  UNIQUE KEY ux_orders_idempotency_key (idempotency_key),
	  KEY ix_orders_user_created (user_id, created_at),
	  KEY ix_orders_brand_created (brand_id, created_at),
	  KEY ix_orders_checkout_state (checkout_state, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS order_items (
	  id CHAR(36) NOT NULL,
	  order_id CHAR(36) NOT NULL,
	  product_id CHAR(36) NOT NULL,
	  variant_id CHAR(36) NULL,
	  product_name VARCHAR(255) NOT NULL,
	  variant_label VARCHAR(128) NOT NULL DEFAULT '',
	  quantity INT NOT NULL,
	  unit_price_cents BIGINT NOT NULL,
	  line_total_cents BIGINT NOT NULL,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  KEY ix_order_items_order_id (order_id),
	  CONSTRAINT fk_order_items_order FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS order_events (
	  id CHAR(36) NOT NULL,
	  order_id CHAR(36) NOT NULL,
	  actor_id CHAR(36) NOT NULL,
	  actor_role VARCHAR(32) NOT NULL,
	  from_status VARCHAR(16) NOT NULL,
	  to_status VARCHAR(16) NOT NULL,
	  note TEXT NULL,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  KEY ix_order_events_order_created (order_id, created_at),
	  CONSTRAINT fk_order_events_order FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS outbox_events (
	  id CHAR(36) NOT NULL,
	  topic VARCHAR(64) NOT NULL,
	  order_id CHAR(36) NOT NULL,
	  payload JSON NOT NULL,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  sent_at DATETIME(3) NULL,
	  PRIMARY KEY (id),
	  KEY ix_outbox_events_pending (sent_at, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`

	if _, err := sqlDB.Exec(sql); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	log.Println("Tables created.")
}
