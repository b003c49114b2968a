package store

const qEnsureSchema = `--sql 3b0f4c61-6a2e-4d8b-9f0e-2c7d1a5e8b94
create table if not exists content_records (
  id text primary key,
  title text not null default '',
  niche text not null default '',
  excerpt text not null default '',
  full_story text not null default '',
  audio_url text not null default '',
  video_url text not null default '',
  images jsonb not null default '[]'::jsonb,
  tags jsonb not null default '[]'::jsonb,
  status text not null,
  progress int not null default 0,
  error text not null default '',
  error_code text not null default '',
  providers jsonb not null default '{}'::jsonb,
  publish_results jsonb,
  created_at timestamptz not null,
  updated_at timestamptz not null
);
`

const qEnsureIndex = `--sql 6e4a1d27-b3c9-4f05-a8d2-9c7b0e5f1a36
create index if not exists content_records_created_at_idx on content_records (created_at desc);
`

const qInsertRecord = `--sql 8c2d7e15-0f4b-4a39-b6d1-5e9a3c7f2041
insert into content_records(
  id, title, niche, excerpt, full_story, audio_url, video_url, images, tags,
  status, progress, error, error_code, providers, publish_results, created_at, updated_at
) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17);
`

const qUpdateRecord = `--sql d41f9a07-3c8e-4b52-a1e6-7f0b2d9c5e38
update content_records set
  title = $2,
  niche = $3,
  excerpt = $4,
  full_story = $5,
  audio_url = $6,
  video_url = $7,
  images = $8,
  tags = $9,
  status = $10,
  progress = $11,
  error = $12,
  error_code = $13,
  providers = $14,
  publish_results = $15,
  updated_at = $16
where id = $1;
`

const qSelectRecords = `--sql 5a7e2c90-1b6d-4f83-8e4a-0c9f3d6b2a17
select id, title, niche, excerpt, full_story, audio_url, video_url, images, tags,
  status, progress, error, error_code, providers, publish_results, created_at, updated_at
from content_records
order by created_at desc, id desc;
`

const qSelectRecordByID = `--sql f0b83d2e-9a41-4c6f-b7e5-3d1a8c2f9e60
select id, title, niche, excerpt, full_story, audio_url, video_url, images, tags,
  status, progress, error, error_code, providers, publish_results, created_at, updated_at
from content_records
where id = $1
limit 1;
`

const qUpdateStatus = `--sql 2e6c0a9d-7f3b-4158-9d2c-6b4e1f8a0c73
update content_records set status = $2, updated_at = $3
where id = $1 and status = any($4::text[]);
`

const qRecordStatus = `--sql 6a3f9c1e-2b7d-4e85-a0c4-8d5b1e7f3a29
select status from content_records where id = $1;
`

const qDeleteRecord = `--sql 9d1b5f3a-4e7c-4a06-8c2b-1f6e9d3a7b52
delete from content_records where id = $1;
`
