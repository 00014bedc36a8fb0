package leaderboard

import "context"

// Repository определяет интерфейс для хранения таблицы рекордов.
// Коллекция читается и перезаписывается целиком: это модель оригинального
// файлового хранилища (один документ на коллекцию). Порядок записей —
// порядок вставки, он важен для стабильной сортировки при равных очках.
type Repository interface {
	// Load загружает все записи коллекции в порядке вставки.
	// Отсутствие данных — не ошибка: возвращается пустой срез.
	// Параметры:
	//   ctx - контекст для отмены операции
	// Возвращает:
	//   []Entry - записи в порядке вставки
	//   error - ошибка при загрузке
	Load(ctx context.Context) ([]Entry, error)

	// Replace атомарно (с точки зрения последующих Load) перезаписывает
	// коллекцию целиком. Частично записанное состояние не должно быть
	// наблюдаемо. При конкурентных вызовах побеждает последний писатель —
	// это документированное ограничение однопроцессной модели.
	// Параметры:
	//   ctx - контекст для отмены операции
	//   entries - новое содержимое коллекции
	// Возвращает:
	//   error - ошибка при сохранении
	Replace(ctx context.Context, entries []Entry) error
}
