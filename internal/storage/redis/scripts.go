package redis

const (
	// replaceRecordsScript atomically swaps the whole record list
	replaceRecordsScript = `
local records_key = KEYS[1]     -- timelog:records

redis.call('DEL', records_key)
for i = 1, #ARGV do
  redis.call('RPUSH', records_key, ARGV[i])
end

return #ARGV
`

	// releaseLockScript deletes the lock only if it still holds our token
	releaseLockScript = `
local lock_key = KEYS[1]        -- timelog:lock:{state|records}
local token = ARGV[1]

if redis.call('GET', lock_key) == token then
  return redis.call('DEL', lock_key)
end

return 0
`
)
