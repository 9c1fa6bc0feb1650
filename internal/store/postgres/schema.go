package postgres

// Schema is the complete PostgreSQL schema. Statements are idempotent so
// the schema can be applied on every startup. The embedding vector column
// is added separately by MigrationPgvector when the extension is present.
const Schema = `
CREATE TABLE IF NOT EXISTS thoughts (
    id               TEXT PRIMARY KEY,
    content          TEXT NOT NULL,
    summary          TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL,
    salience         DOUBLE PRECISION NOT NULL DEFAULT 0.5,
    review_count     INTEGER NOT NULL DEFAULT 0,
    ease_factor      DOUBLE PRECISION NOT NULL DEFAULT 2.5,
    interval_days    INTEGER NOT NULL DEFAULT 1,
    last_review      TIMESTAMPTZ,
    next_review      TIMESTAMPTZ,
    in_review_queue  BOOLEAN NOT NULL DEFAULT FALSE,
    redundant_of     TEXT,
    marked_redundant TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_thoughts_created_at ON thoughts(created_at);
CREATE INDEX IF NOT EXISTS idx_thoughts_review ON thoughts(salience, next_review);

CREATE TABLE IF NOT EXISTS embeddings (
    thought_id TEXT PRIMARY KEY REFERENCES thoughts(id),
    vector     JSONB NOT NULL,
    model      TEXT NOT NULL,
    dimension  INTEGER NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS entities (
    name            TEXT PRIMARY KEY,
    type            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL,
    recent_activity INTEGER NOT NULL DEFAULT 0,
    last_seen       TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS thought_entities (
    thought_id  TEXT NOT NULL REFERENCES thoughts(id),
    entity_name TEXT NOT NULL REFERENCES entities(name),
    PRIMARY KEY (thought_id, entity_name)
);

CREATE INDEX IF NOT EXISTS idx_thought_entities_entity ON thought_entities(entity_name);

CREATE TABLE IF NOT EXISTS thought_categories (
    thought_id TEXT NOT NULL REFERENCES thoughts(id),
    category   TEXT NOT NULL,
    PRIMARY KEY (thought_id, category)
);

CREATE TABLE IF NOT EXISTS entity_connections (
    a          TEXT NOT NULL,
    b          TEXT NOT NULL,
    weight     INTEGER NOT NULL DEFAULT 1,
    updated_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (a, b)
);

CREATE TABLE IF NOT EXISTS action_items (
    id         TEXT PRIMARY KEY,
    task       TEXT NOT NULL,
    urgency    TEXT NOT NULL DEFAULT 'medium',
    deadline   TIMESTAMPTZ,
    status     TEXT NOT NULL DEFAULT 'pending',
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS reminders (
    id         TEXT PRIMARY KEY,
    title      TEXT NOT NULL,
    at         TIMESTAMPTZ NOT NULL,
    status     TEXT NOT NULL DEFAULT 'pending',
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
    id       TEXT PRIMARY KEY,
    title    TEXT NOT NULL,
    start    TIMESTAMPTZ NOT NULL,
    "end"    TIMESTAMPTZ NOT NULL,
    moveable BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_events_start ON events(start);

CREATE TABLE IF NOT EXISTS blocked_tasks (
    id               TEXT PRIMARY KEY,
    title            TEXT NOT NULL,
    priority         INTEGER NOT NULL DEFAULT 0,
    cognitive_demand TEXT NOT NULL DEFAULT 'MEDIUM',
    blocker_name     TEXT NOT NULL,
    blocker_id       TEXT NOT NULL DEFAULT '',
    deadline         TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS clarifications (
    id          TEXT PRIMARY KEY,
    type        TEXT NOT NULL,
    description TEXT NOT NULL,
    options     JSONB,
    context     TEXT NOT NULL DEFAULT '',
    resolved    BOOLEAN NOT NULL DEFAULT FALSE,
    response    TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS alerts (
    id         TEXT PRIMARY KEY,
    type       TEXT NOT NULL,
    title      TEXT NOT NULL,
    message    TEXT NOT NULL,
    urgency    TEXT NOT NULL DEFAULT 'low',
    metadata   JSONB,
    created_at TIMESTAMPTZ NOT NULL,
    read       BOOLEAN NOT NULL DEFAULT FALSE,
    dismissed  BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS consolidation_runs (
    id                       SERIAL PRIMARY KEY,
    ran_at                   TIMESTAMPTZ NOT NULL,
    profiles_updated         INTEGER NOT NULL DEFAULT 0,
    connections_strengthened INTEGER NOT NULL DEFAULT 0,
    redundant_marked         INTEGER NOT NULL DEFAULT 0,
    review_queue_updated     INTEGER NOT NULL DEFAULT 0,
    errors                   JSONB
);
`

// MigrationPgvector adds the native vector column and ANN index to the
// embeddings table. Applied only when the pgvector extension is present.
// The dimension matches nomic-embed-text output.
const MigrationPgvector = `
ALTER TABLE embeddings ADD COLUMN IF NOT EXISTS embedding_vec vector(768);

CREATE INDEX IF NOT EXISTS idx_embeddings_vec
    ON embeddings USING ivfflat (embedding_vec vector_cosine_ops)
    WITH (lists = 100);
`
