package database

const (
	// Wallet queries
	queryGetWallet = `
		SELECT id, available, reserved, seed, version, created_at, updated_at
		FROM campaign_wallet
		LIMIT 1`

	queryGetWalletById = `
		SELECT id, available, reserved, seed, version, created_at, updated_at
		FROM campaign_wallet
		WHERE id = ?`

	queryInsertWallet = `
		INSERT INTO campaign_wallet (id, available, reserved, seed, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)`

	queryUpdateWalletBalances = `
		UPDATE campaign_wallet
		SET available = ?, reserved = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	// Session queries
	queryGetSession = `
		SELECT id, facilitator_id, allocated, spent, status, wallet_id, version, created_at, updated_at
		FROM sessions
		WHERE id = ?`

	queryInsertSession = `
		INSERT INTO sessions (id, facilitator_id, allocated, spent, status, wallet_id, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`

	queryUpdateSessionSpent = `
		UPDATE sessions
		SET spent = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	queryUpdateSessionStatus = `
		UPDATE sessions
		SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	queryCountSessions = `
		SELECT COUNT(*) FROM sessions`

	// Ledger queries. The ledger is append-only: there is no UPDATE or
	// DELETE statement for transactions anywhere in this package.
	queryInsertLedgerEntry = `
		INSERT INTO transactions (session_id, wallet_id, type, direction, amount, vendor, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryListLedgerEntries = `
		SELECT id, session_id, wallet_id, type, direction, amount, vendor, created_at
		FROM transactions
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`

	queryListSessionLedgerEntries = `
		SELECT id, session_id, wallet_id, type, direction, amount, vendor, created_at
		FROM transactions
		WHERE session_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`

	queryGetLedgerEntry = `
		SELECT id, session_id, wallet_id, type, direction, amount, vendor, created_at
		FROM transactions
		WHERE id = ?`

	querySpendAmounts = `
		SELECT amount FROM transactions WHERE type = 'SPEND'`

	queryLedgerDirections = `
		SELECT direction, amount FROM transactions WHERE wallet_id = ?`

	queryCountTransactions = `
		SELECT COUNT(*) FROM transactions`

	// User queries
	queryInsertUser = `
		INSERT OR IGNORE INTO users (id, full_name, email, password_hash, role)
		VALUES (?, ?, ?, ?, ?)`

	queryGetUserById = `
		SELECT id, full_name, email, password_hash, role, created_at
		FROM users
		WHERE id = ?`

	queryGetUserByEmail = `
		SELECT id, full_name, email, password_hash, role, created_at
		FROM users
		WHERE email = ?`

	// Vendor queries
	queryGetVendor = `
		SELECT id, name, contact_info, location, is_active, created_at, updated_at
		FROM vendors
		WHERE id = ?`

	queryFindVendorByName = `
		SELECT id FROM vendors WHERE name = ? COLLATE NOCASE AND id != ?`

	queryInsertVendor = `
		INSERT INTO vendors (id, name, contact_info, location, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryUpdateVendor = `
		UPDATE vendors
		SET name = COALESCE(?, name),
		    contact_info = COALESCE(?, contact_info),
		    location = COALESCE(?, location),
		    is_active = COALESCE(?, is_active),
		    updated_at = ?
		WHERE id = ?`

	queryDeleteVendor = `
		DELETE FROM vendors WHERE id = ?`

	queryDeactivateVendor = `
		UPDATE vendors SET is_active = 0, updated_at = ? WHERE id = ?`

	queryCountVendorSpends = `
		SELECT COUNT(*) FROM transactions WHERE vendor = ? COLLATE NOCASE`

	// Receipt queries
	queryInsertReceipt = `
		INSERT INTO receipts (id, transaction_id, file_url, uploaded_at)
		VALUES (?, ?, ?, ?)`

	queryReceiptExists = `
		SELECT id FROM receipts WHERE transaction_id = ? LIMIT 1`

	queryGetReceiptByTransaction = `
		SELECT r.id, r.transaction_id, r.file_url, r.uploaded_at,
		       t.session_id, t.amount, t.vendor, s.facilitator_id
		FROM receipts r
		JOIN transactions t ON r.transaction_id = t.id
		LEFT JOIN sessions s ON t.session_id = s.id
		WHERE r.transaction_id = ?`

	queryListSessionReceipts = `
		SELECT r.id, r.transaction_id, r.file_url, r.uploaded_at,
		       t.session_id, t.amount, t.vendor, s.facilitator_id
		FROM receipts r
		JOIN transactions t ON r.transaction_id = t.id
		LEFT JOIN sessions s ON t.session_id = s.id
		WHERE t.session_id = ? AND t.type = 'SPEND'
		ORDER BY r.uploaded_at DESC, r.id DESC`
)
