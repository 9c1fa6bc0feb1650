package sqlite

// Schema is the complete SQLite schema. Statements are idempotent so the
// schema can be applied on every startup.
const Schema = `
CREATE TABLE IF NOT EXISTS thoughts (
    id               TEXT PRIMARY KEY,
    content          TEXT NOT NULL,
    summary          TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMP NOT NULL,
    salience         REAL NOT NULL DEFAULT 0.5,
    review_count     INTEGER NOT NULL DEFAULT 0,
    ease_factor      REAL NOT NULL DEFAULT 2.5,
    interval_days    INTEGER NOT NULL DEFAULT 1,
    last_review      TIMESTAMP,
    next_review      TIMESTAMP,
    in_review_queue  INTEGER NOT NULL DEFAULT 0,
    redundant_of     TEXT,
    marked_redundant TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_thoughts_created_at ON thoughts(created_at);
CREATE INDEX IF NOT EXISTS idx_thoughts_review ON thoughts(salience, next_review);

CREATE TABLE IF NOT EXISTS embeddings (
    thought_id TEXT PRIMARY KEY REFERENCES thoughts(id),
    vector     TEXT NOT NULL,
    model      TEXT NOT NULL,
    dimension  INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS entities (
    name            TEXT PRIMARY KEY,
    type            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMP NOT NULL,
    updated_at      TIMESTAMP NOT NULL,
    recent_activity INTEGER NOT NULL DEFAULT 0,
    last_seen       TIMESTAMP
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
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (a, b)
);

CREATE TABLE IF NOT EXISTS action_items (
    id         TEXT PRIMARY KEY,
    task       TEXT NOT NULL,
    urgency    TEXT NOT NULL DEFAULT 'medium',
    deadline   TIMESTAMP,
    status     TEXT NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS reminders (
    id         TEXT PRIMARY KEY,
    title      TEXT NOT NULL,
    at         TIMESTAMP NOT NULL,
    status     TEXT NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
    id       TEXT PRIMARY KEY,
    title    TEXT NOT NULL,
    start    TIMESTAMP NOT NULL,
    "end"    TIMESTAMP NOT NULL,
    moveable INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_events_start ON events(start);

CREATE TABLE IF NOT EXISTS blocked_tasks (
    id               TEXT PRIMARY KEY,
    title            TEXT NOT NULL,
    priority         INTEGER NOT NULL DEFAULT 0,
    cognitive_demand TEXT NOT NULL DEFAULT 'MEDIUM',
    blocker_name     TEXT NOT NULL,
    blocker_id       TEXT NOT NULL DEFAULT '',
    deadline         TIMESTAMP
);

CREATE TABLE IF NOT EXISTS clarifications (
    id          TEXT PRIMARY KEY,
    type        TEXT NOT NULL,
    description TEXT NOT NULL,
    options     TEXT,
    context     TEXT NOT NULL DEFAULT '',
    resolved    INTEGER NOT NULL DEFAULT 0,
    response    TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS alerts (
    id         TEXT PRIMARY KEY,
    type       TEXT NOT NULL,
    title      TEXT NOT NULL,
    message    TEXT NOT NULL,
    urgency    TEXT NOT NULL DEFAULT 'low',
    metadata   TEXT,
    created_at TIMESTAMP NOT NULL,
    read       INTEGER NOT NULL DEFAULT 0,
    dismissed  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS consolidation_runs (
    id                       INTEGER PRIMARY KEY AUTOINCREMENT,
    ran_at                   TIMESTAMP NOT NULL,
    profiles_updated         INTEGER NOT NULL DEFAULT 0,
    connections_strengthened INTEGER NOT NULL DEFAULT 0,
    redundant_marked         INTEGER NOT NULL DEFAULT 0,
    review_queue_updated     INTEGER NOT NULL DEFAULT 0,
    errors                   TEXT
);
`
