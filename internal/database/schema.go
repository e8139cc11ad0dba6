package database

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id CHAR(36) PRIMARY KEY,
    email VARCHAR(255) NOT NULL UNIQUE,
    name VARCHAR(255),
    image VARCHAR(512),
    coins INT NOT NULL DEFAULT 0,
    inapp_coins INT NOT NULL DEFAULT 0,
    sub_coins INT NOT NULL DEFAULT 0,
    rights_type VARCHAR(16),
    subscription_type VARCHAR(16),
    subscription_expires_at TIMESTAMP NULL DEFAULT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS orders (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    user_id CHAR(36) NOT NULL,
    type VARCHAR(16) NOT NULL,
    amount DECIMAL(10,2) NOT NULL,
    coins INT NOT NULL DEFAULT 0,
    subscription_tier VARCHAR(16),
    paypal_order_id VARCHAR(64),
    status VARCHAR(16) NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    UNIQUE KEY uniq_paypal_order (paypal_order_id),
    FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS generation_history (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    user_id CHAR(36) NOT NULL,
    task_type VARCHAR(16) NOT NULL,
    model VARCHAR(128) NOT NULL,
    job_id VARCHAR(64) NOT NULL UNIQUE,
    prompt TEXT,
    params JSON,
    price INT NOT NULL DEFAULT 0,
    status TINYINT NOT NULL DEFAULT 1,
    result JSON,
    error_message TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    KEY idx_user_created (user_id, created_at),
    KEY idx_status (status),
    FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS models (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    title VARCHAR(128) NOT NULL,
    type VARCHAR(16) NOT NULL,
    shortapi VARCHAR(128) NOT NULL UNIQUE,
    description TEXT,
    parameters JSON,
    active TINYINT(1) NOT NULL DEFAULT 1,
    sort_order INT NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS coin_packages (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    package_id VARCHAR(32) NOT NULL UNIQUE,
    coins INT NOT NULL,
    bonus_coins INT NOT NULL DEFAULT 0,
    price DECIMAL(10,2) NOT NULL,
    active TINYINT(1) NOT NULL DEFAULT 1,
    sort_order INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS subscription_packages (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    plan_id VARCHAR(16) NOT NULL,
    billing_cycle VARCHAR(16) NOT NULL,
    coins INT NOT NULL,
    price DECIMAL(10,2) NOT NULL,
    active TINYINT(1) NOT NULL DEFAULT 1,
    sort_order INT NOT NULL DEFAULT 0,
    UNIQUE KEY uniq_plan_cycle (plan_id, billing_cycle)
);
`
