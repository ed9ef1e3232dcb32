package dbtest

// Schema mirrors the goose migrations in sqlite syntax. Enum columns become
// text and partial unique indexes are kept so invariants hold in tests too.
var Schema = []string{
	`CREATE TABLE users (
		id text PRIMARY KEY,
		email text NOT NULL UNIQUE,
		display_name text NOT NULL,
		role text NOT NULL DEFAULT 'user',
		locale text,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE pet_types (
		id text PRIMARY KEY,
		slug text NOT NULL UNIQUE,
		name text NOT NULL,
		created_at datetime
	)`,
	`CREATE TABLE pets (
		id text PRIMARY KEY,
		user_id text NOT NULL,
		pet_type_id text NOT NULL,
		name text NOT NULL,
		sex text,
		birth_date datetime,
		description text,
		status text NOT NULL DEFAULT 'active',
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE helper_profiles (
		id text PRIMARY KEY,
		user_id text NOT NULL UNIQUE,
		bio text,
		city text,
		can_foster boolean NOT NULL DEFAULT false,
		can_adopt boolean NOT NULL DEFAULT false,
		can_pet_sit boolean NOT NULL DEFAULT false,
		pet_type_ids text NOT NULL DEFAULT '{}',
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE placement_requests (
		id text PRIMARY KEY,
		pet_id text NOT NULL,
		user_id text NOT NULL,
		request_type text NOT NULL,
		status text NOT NULL DEFAULT 'open',
		notes text,
		start_date datetime,
		end_date datetime,
		fulfilled_at datetime,
		cancelled_at datetime,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE UNIQUE INDEX ux_placement_requests_one_live_per_type
		ON placement_requests (pet_id, request_type)
		WHERE status IN ('open', 'pending_transfer', 'active')`,
	`CREATE TABLE placement_request_responses (
		id text PRIMARY KEY,
		placement_request_id text NOT NULL,
		helper_profile_id text NOT NULL,
		user_id text NOT NULL,
		message text,
		status text NOT NULL DEFAULT 'responded',
		responded_at datetime NOT NULL,
		accepted_at datetime,
		rejected_at datetime,
		cancelled_at datetime,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE UNIQUE INDEX ux_placement_responses_helper
		ON placement_request_responses (placement_request_id, helper_profile_id)`,
	`CREATE UNIQUE INDEX ux_placement_responses_one_accepted
		ON placement_request_responses (placement_request_id)
		WHERE status = 'accepted'`,
	`CREATE TABLE transfer_requests (
		id text PRIMARY KEY,
		pet_id text NOT NULL,
		placement_request_id text NOT NULL,
		placement_request_response_id text NOT NULL,
		from_user_id text NOT NULL,
		to_user_id text NOT NULL,
		status text NOT NULL DEFAULT 'pending',
		accepted_at datetime,
		rejected_at datetime,
		canceled_at datetime,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE transfer_handovers (
		id text PRIMARY KEY,
		transfer_request_id text NOT NULL,
		owner_user_id text NOT NULL,
		helper_user_id text NOT NULL,
		status text NOT NULL DEFAULT 'pending',
		scheduled_at datetime,
		location text,
		condition_confirmed boolean NOT NULL DEFAULT false,
		condition_notes text,
		initiated_at datetime NOT NULL,
		confirmed_at datetime,
		completed_at datetime,
		canceled_at datetime,
		disputed_at datetime,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE foster_assignments (
		id text PRIMARY KEY,
		pet_id text NOT NULL,
		owner_user_id text NOT NULL,
		foster_user_id text NOT NULL,
		transfer_request_id text NOT NULL,
		placement_request_id text NOT NULL,
		status text NOT NULL DEFAULT 'active',
		started_at datetime NOT NULL,
		expected_end_at datetime,
		completed_at datetime,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE foster_return_handovers (
		id text PRIMARY KEY,
		foster_assignment_id text NOT NULL,
		owner_user_id text NOT NULL,
		helper_user_id text NOT NULL,
		status text NOT NULL DEFAULT 'pending',
		scheduled_at datetime,
		location text,
		condition_confirmed boolean NOT NULL DEFAULT false,
		condition_notes text,
		initiated_at datetime NOT NULL,
		confirmed_at datetime,
		completed_at datetime,
		canceled_at datetime,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE UNIQUE INDEX ux_transfer_requests_one_pending_per_response
		ON transfer_requests (placement_request_response_id) WHERE status = 'pending'`,
	`CREATE UNIQUE INDEX ux_transfer_handovers_one_open
		ON transfer_handovers (transfer_request_id) WHERE status IN ('pending', 'confirmed', 'disputed')`,
	`CREATE UNIQUE INDEX ux_foster_assignments_one_active_per_pet
		ON foster_assignments (pet_id) WHERE status = 'active'`,
	`CREATE UNIQUE INDEX ux_foster_return_handovers_one_open
		ON foster_return_handovers (foster_assignment_id) WHERE status IN ('pending', 'confirmed', 'disputed')`,
	`CREATE TABLE ownership_history (
		id text PRIMARY KEY,
		pet_id text NOT NULL,
		user_id text NOT NULL,
		from_ts datetime NOT NULL,
		to_ts datetime,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE UNIQUE INDEX ux_ownership_history_one_open
		ON ownership_history (pet_id, user_id)
		WHERE to_ts IS NULL`,
	`CREATE TABLE pet_relationships (
		id text PRIMARY KEY,
		pet_id text NOT NULL,
		user_id text NOT NULL,
		relationship_type text NOT NULL,
		start_at datetime NOT NULL,
		end_at datetime,
		created_by_user_id text,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE UNIQUE INDEX ux_pet_relationships_one_active
		ON pet_relationships (pet_id, user_id, relationship_type)
		WHERE end_at IS NULL`,
	`CREATE TABLE relationship_invitations (
		id text PRIMARY KEY,
		pet_id text NOT NULL,
		inviter_user_id text NOT NULL,
		invitee_email text,
		relationship_type text NOT NULL,
		secret_hash text NOT NULL,
		status text NOT NULL DEFAULT 'pending',
		expires_at datetime NOT NULL,
		responded_at datetime,
		accepted_by_user_id text,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE notifications (
		id text PRIMARY KEY,
		user_id text NOT NULL,
		type text NOT NULL,
		title text NOT NULL,
		message text NOT NULL,
		link text,
		data text,
		delivered_at datetime,
		read_at datetime,
		created_at datetime
	)`,
	`CREATE TABLE notification_preferences (
		id text PRIMARY KEY,
		user_id text NOT NULL,
		notification_type text NOT NULL,
		email_enabled boolean NOT NULL DEFAULT true,
		in_app_enabled boolean NOT NULL DEFAULT true,
		created_at datetime,
		updated_at datetime,
		CONSTRAINT ux_notification_preferences_user_type UNIQUE (user_id, notification_type)
	)`,
	`CREATE TABLE notification_email_jobs (
		id text PRIMARY KEY,
		user_id text NOT NULL,
		notification_type text NOT NULL,
		recipient text NOT NULL,
		subject text NOT NULL,
		body text NOT NULL,
		link text,
		data text,
		status text NOT NULL DEFAULT 'pending',
		attempts integer NOT NULL DEFAULT 0,
		max_attempts integer NOT NULL DEFAULT 3,
		available_at datetime NOT NULL,
		last_error text,
		sent_at datetime,
		failed_at datetime,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE settings (
		key text PRIMARY KEY,
		value text NOT NULL,
		is_public boolean NOT NULL DEFAULT false,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE email_configurations (
		id text PRIMARY KEY,
		provider text NOT NULL,
		status text NOT NULL DEFAULT 'inactive',
		from_address text NOT NULL,
		from_name text,
		config text,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE UNIQUE INDEX ux_email_configurations_one_active
		ON email_configurations (status)
		WHERE status = 'active'`,
	`CREATE TABLE outbox_events (
		id text PRIMARY KEY,
		event_type text NOT NULL,
		aggregate_type text NOT NULL,
		aggregate_id text NOT NULL,
		payload text NOT NULL,
		created_at datetime,
		published_at datetime,
		attempt_count integer NOT NULL DEFAULT 0,
		last_error text
	)`,
	`CREATE TABLE outbox_dlq (
		id text PRIMARY KEY,
		event_id text NOT NULL,
		event_type text NOT NULL,
		aggregate_type text NOT NULL,
		aggregate_id text NOT NULL,
		payload_json text NOT NULL,
		error_reason text NOT NULL,
		error_message text,
		attempt_count integer NOT NULL DEFAULT 0,
		failed_at datetime,
		created_at datetime
	)`,
}
