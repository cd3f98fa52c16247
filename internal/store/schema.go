package store

const schema = `
-- Votations listed by the chamber
CREATE TABLE IF NOT EXISTS votation_metadata (
    id TEXT PRIMARY KEY,
    date TEXT NOT NULL,
    title TEXT NOT NULL,
    type TEXT NOT NULL DEFAULT '',
    result TEXT NOT NULL DEFAULT '',
    scrape_stage TEXT NOT NULL DEFAULT 'unscraped' CHECK (scrape_stage IN ('unscraped', 'scraped')),
    analysis_stage TEXT NOT NULL DEFAULT 'unanalyzed' CHECK (analysis_stage IN ('unanalyzed', 'analyzed'))
);

CREATE INDEX IF NOT EXISTS idx_votation_metadata_scrape_stage ON votation_metadata(scrape_stage);

-- Roll call of each votation
CREATE TABLE IF NOT EXISTS deputies_votes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    vote_id TEXT NOT NULL REFERENCES votation_metadata(id) ON DELETE CASCADE,
    deputy TEXT NOT NULL,
    block TEXT NOT NULL,
    province TEXT NOT NULL DEFAULT '',
    vote TEXT NOT NULL CHECK (vote IN ('AFIRMATIVO', 'NEGATIVO', 'ABSTENCION', 'SIN VOTAR', 'AUSENTE', 'PRESIDENTE'))
);

CREATE INDEX IF NOT EXISTS idx_deputies_votes_vote_id ON deputies_votes(vote_id);
`
